package sqlconnector

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"query-engine/internal/coreerr"
)

// MySQL/TiDB server error numbers mapped to storage reason codes.
// See: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	mysqlErrDBAccessDenied     = 1044
	mysqlErrTableAccessDenied  = 1142
	mysqlErrColumnAccessDenied = 1143
	mysqlErrDuplicateEntry     = 1062
	mysqlErrRowIsReferenced    = 1451
	mysqlErrNoReferencedRow    = 1452
	mysqlErrBadNull            = 1048
	mysqlErrNoDefault          = 1364
)

// normalizeError wraps a driver failure in a coreerr storage error whose code
// names the constraint that was hit.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	if coreerr.KindOf(err) != 0 {
		return err
	}
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return coreerr.Storage("query_failed", err)
	}

	switch mysqlErr.Number {
	case mysqlErrDBAccessDenied, mysqlErrTableAccessDenied, mysqlErrColumnAccessDenied:
		return coreerr.Storage("access_denied", err)
	case mysqlErrDuplicateEntry:
		return coreerr.Storage("unique_violation", err)
	case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
		return coreerr.Storage("foreign_key_violation", err)
	case mysqlErrBadNull, mysqlErrNoDefault:
		return coreerr.Storage("not_null_violation", err)
	default:
		return coreerr.Storage("query_failed", err)
	}
}

package sqlconnector

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-engine/internal/coreerr"
)

func toDriverValues(args []any) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg
	}
	return values
}

func mysqlDuplicate() error {
	return &mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry 'a@example.com' for key 'email'"}
}

func storageCode(t *testing.T, err error) string {
	t.Helper()
	var coreErr *coreerr.Error
	require.True(t, errors.As(err, &coreErr))
	return coreErr.Code
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "duplicate", err: mysqlDuplicate(), code: "unique_violation"},
		{name: "referenced row", err: &mysql.MySQLError{Number: mysqlErrRowIsReferenced}, code: "foreign_key_violation"},
		{name: "missing parent", err: &mysql.MySQLError{Number: mysqlErrNoReferencedRow}, code: "foreign_key_violation"},
		{name: "null column", err: &mysql.MySQLError{Number: mysqlErrBadNull}, code: "not_null_violation"},
		{name: "no default", err: &mysql.MySQLError{Number: mysqlErrNoDefault}, code: "not_null_violation"},
		{name: "access denied", err: &mysql.MySQLError{Number: mysqlErrTableAccessDenied}, code: "access_denied"},
		{name: "other mysql error", err: &mysql.MySQLError{Number: 1205}, code: "query_failed"},
		{name: "wrapped driver error", err: fmt.Errorf("exec: %w", mysqlDuplicate()), code: "unique_violation"},
		{name: "plain error", err: errors.New("connection reset"), code: "query_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizeError(tt.err)
			assert.True(t, coreerr.IsKind(err, coreerr.KindStorage))
			assert.Equal(t, tt.code, storageCode(t, err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNormalizeError_KeepsCoreErrors(t *testing.T) {
	assert.NoError(t, normalizeError(nil))

	notFound := coreerr.NotFound("missing")
	assert.Same(t, notFound, normalizeError(notFound))
}

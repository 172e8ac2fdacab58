// Package sqlutil provides identifier quoting for the MySQL dialect.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QualifiedColumn quotes col and, when alias is set, prefixes it with the
// quoted alias.
func QualifiedColumn(alias, col string) string {
	if alias == "" {
		return QuoteIdentifier(col)
	}
	return QuoteIdentifier(alias) + "." + QuoteIdentifier(col)
}

// TableAs renders a FROM/JOIN target. The alias is omitted when it is empty
// or equal to the table name.
func TableAs(table, alias string) string {
	if alias == "" || alias == table {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(table) + " AS " + QuoteIdentifier(alias)
}

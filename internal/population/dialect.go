package population

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// validIdentifier guards every table and column name that ends up in SQL text.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// dialect isolates the SQL that differs between providers.
type dialect interface {
	name() string
	driver() string
	dsn(url string) string
	placeholder() squirrel.PlaceholderFormat
	quote(ident string) string
	// tableExists and columnOrder return a query and its arguments.
	tableExists(table string) squirrel.SelectBuilder
	columnOrder(table string) (string, []interface{})
	listTables() squirrel.SelectBuilder
	// rowOrder is the ORDER BY that makes reads of a reference table
	// repeatable across runs.
	rowOrder(columns []string) []string
	// maxParams bounds the placeholders of one multi-row insert.
	maxParams() int
}

func dialectFor(provider string) (dialect, error) {
	switch provider {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgresql", "postgres":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database provider: %s. Supported providers: %v",
		provider, []string{"sqlite", "postgresql", "mysql"})
}

type sqliteDialect struct{}

func (sqliteDialect) name() string   { return "sqlite" }
func (sqliteDialect) driver() string { return "sqlite3" }

func (sqliteDialect) dsn(url string) string {
	return strings.TrimPrefix(url, "sqlite://")
}

func (sqliteDialect) placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) tableExists(table string) squirrel.SelectBuilder {
	return squirrel.Select("name").From("sqlite_master").
		Where(squirrel.Eq{"type": "table", "name": table})
}

func (sqliteDialect) columnOrder(table string) (string, []interface{}) {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid", []interface{}{table}
}

func (sqliteDialect) listTables() squirrel.SelectBuilder {
	return squirrel.Select("name").From("sqlite_master").
		Where(squirrel.Eq{"type": "table"}).OrderBy("name")
}

// rowOrder is insertion order.
func (sqliteDialect) rowOrder([]string) []string { return []string{"rowid"} }

func (sqliteDialect) maxParams() int { return 999 }

type postgresDialect struct{}

func (postgresDialect) name() string   { return "postgresql" }
func (postgresDialect) driver() string { return "pgx" }
func (postgresDialect) dsn(url string) string {
	return url
}

func (postgresDialect) placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }

func (postgresDialect) quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (postgresDialect) tableExists(table string) squirrel.SelectBuilder {
	return squirrel.Select("table_name").From("information_schema.tables").
		Where("table_schema = current_schema()").
		Where(squirrel.Eq{"table_name": table})
}

func (postgresDialect) columnOrder(table string) (string, []interface{}) {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, []interface{}{table}
}

func (postgresDialect) listTables() squirrel.SelectBuilder {
	return squirrel.Select("table_name").From("information_schema.tables").
		Where("table_schema = current_schema()").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).OrderBy("table_name")
}

// rowOrder sorts on every column in table order; the tables carry no
// insertion sequence.
func (d postgresDialect) rowOrder(columns []string) []string { return quoteAll(d, columns) }

func (postgresDialect) maxParams() int { return 65535 }

type mysqlDialect struct{}

func (mysqlDialect) name() string   { return "mysql" }
func (mysqlDialect) driver() string { return "mysql" }
func (mysqlDialect) dsn(url string) string {
	return strings.TrimPrefix(url, "mysql://")
}

func (mysqlDialect) placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

func (mysqlDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) tableExists(table string) squirrel.SelectBuilder {
	return squirrel.Select("table_name").From("information_schema.tables").
		Where("table_schema = DATABASE()").
		Where(squirrel.Eq{"table_name": table})
}

func (mysqlDialect) columnOrder(table string) (string, []interface{}) {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, []interface{}{table}
}

func (mysqlDialect) listTables() squirrel.SelectBuilder {
	return squirrel.Select("table_name").From("information_schema.tables").
		Where("table_schema = DATABASE()").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).OrderBy("table_name")
}

func (d mysqlDialect) rowOrder(columns []string) []string { return quoteAll(d, columns) }

func (mysqlDialect) maxParams() int { return 65535 }

func quoteAll(d dialect, idents []string) []string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = d.quote(ident)
	}
	return out
}

// Package population persists the reference population: every entity ever
// generated for the new stream, with the column order fixed by its first
// commit. The store is the only writer; engines read it to age entities.
package population

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
)

// TempPrefix marks tables owned by a run; Purge drops all of them.
const TempPrefix = "temp_"

// ReferenceTable names the population table of a specification id.
func ReferenceTable(tableID string) string {
	return fmt.Sprintf("%s%s_reference", TempPrefix, tableID)
}

// Reader is the read side engines use to resolve anonymising sets.
type Reader interface {
	Rows(ctx context.Context, table string) (*dataset.Table, error)
}

type Store struct {
	db      *sql.DB
	dialect dialect
	qb      squirrel.StatementBuilderType
	logger  *zap.Logger
}

// Open connects to the database behind url.
func Open(ctx context.Context, provider, url string, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(provider)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, "unknown provider", err)
	}

	db, err := sql.Open(d.driver(), d.dsn(url))
	if err != nil {
		return nil, storeErr("failed to open database", err)
	}
	if d.name() == "sqlite" {
		// One writer; keeps sqlite from reporting SQLITE_BUSY mid-commit.
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("failed to connect to database", err)
	}
	return newStore(db, d, logger), nil
}

// New wraps an existing connection.
func New(db *sql.DB, provider string, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(provider)
	if err != nil {
		return nil, err
	}
	return newStore(db, d, logger), nil
}

func newStore(db *sql.DB, d dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		dialect: d,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(d.placeholder()),
		logger:  logger.Named("population"),
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Commit appends rows to table, creating it from rows.Columns on first use.
// Later commits must carry exactly the fixed columns; they are reordered to
// the stored order before insertion.
func (s *Store) Commit(ctx context.Context, table string, rows *dataset.Table) error {
	if !isValidIdentifier(table) {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "invalid table name: %s", table)
	}
	for _, c := range rows.Columns {
		if !isValidIdentifier(c) {
			return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "invalid column name: %s", c)
		}
	}
	if rows.Len() == 0 {
		return nil
	}

	exists, err := s.Exists(ctx, table)
	if err != nil {
		return err
	}

	order := rows.Columns
	if exists {
		if order, err = s.ColumnOrder(ctx, table); err != nil {
			return err
		}
		if len(order) != len(rows.Columns) {
			return serr.Newf(serr.CategoryConsistency, serr.CodeColumnOrderMismatch,
				"%s has %d columns, commit carries %d", table, len(order), len(rows.Columns))
		}
	}
	aligned, err := dataset.Reindex(rows, order)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if !exists {
		if _, err := tx.ExecContext(ctx, s.createTableSQL(table, order)); err != nil {
			return storeErr(fmt.Sprintf("failed to create %s", table), err)
		}
	}
	if err := s.insertBatches(ctx, tx, table, aligned); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit transaction", err)
	}

	s.logger.Debug("committed rows",
		zap.String("table", table),
		zap.Int("rows", aligned.Len()),
		zap.Bool("created", !exists))
	return nil
}

func (s *Store) createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = s.dialect.quote(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.dialect.quote(table), strings.Join(defs, ", "))
}

func (s *Store) insertBatches(ctx context.Context, tx *sql.Tx, table string, rows *dataset.Table) error {
	if rows.Len() == 0 {
		return nil
	}
	quoted := quoteAll(s.dialect, rows.Columns)

	batchSize := s.dialect.maxParams() / len(rows.Columns)
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > 500 {
		batchSize = 500
	}

	for start := 0; start < rows.Len(); start += batchSize {
		end := start + batchSize
		if end > rows.Len() {
			end = rows.Len()
		}
		insert := s.qb.Insert(s.dialect.quote(table)).Columns(quoted...)
		for _, r := range rows.Rows[start:end] {
			values := make([]interface{}, len(rows.Columns))
			for i, c := range rows.Columns {
				values[i] = r[c]
			}
			insert = insert.Values(values...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return storeErr("failed to build insert", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return storeErr(fmt.Sprintf("failed to insert into %s", table), err)
		}
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, table string) (bool, error) {
	query, args, err := s.dialect.tableExists(table).PlaceholderFormat(s.dialect.placeholder()).ToSql()
	if err != nil {
		return false, storeErr("failed to build query", err)
	}
	var name string
	switch err := s.db.QueryRowContext(ctx, query, args...).Scan(&name); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, storeErr(fmt.Sprintf("failed to look up %s", table), err)
	}
}

// ColumnOrder returns the column order fixed when table was created.
func (s *Store) ColumnOrder(ctx context.Context, table string) ([]string, error) {
	if !isValidIdentifier(table) {
		return nil, serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "invalid table name: %s", table)
	}
	query, args := s.dialect.columnOrder(table)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("failed to read columns of %s", table), err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("failed to scan column name", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating columns", err)
	}
	if len(columns) == 0 {
		return nil, serr.Newf(serr.CategoryPersistence, serr.CodeStoreFailed, "table %s does not exist", table)
	}
	return columns, nil
}

func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if !isValidIdentifier(table) {
		return 0, serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "invalid table name: %s", table)
	}
	query, args, err := s.qb.Select("COUNT(*)").From(s.dialect.quote(table)).ToSql()
	if err != nil {
		return 0, storeErr("failed to build query", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storeErr(fmt.Sprintf("failed to count %s", table), err)
	}
	return n, nil
}

// Rows reads the whole table in insertion order.
func (s *Store) Rows(ctx context.Context, table string) (*dataset.Table, error) {
	columns, err := s.ColumnOrder(ctx, table)
	if err != nil {
		return nil, err
	}
	query, args, err := s.qb.Select(quoteAll(s.dialect, columns)...).
		From(s.dialect.quote(table)).
		OrderBy(s.dialect.rowOrder(columns)...).
		ToSql()
	if err != nil {
		return nil, storeErr("failed to build query", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("failed to read %s", table), err)
	}
	defer rows.Close()

	out := dataset.NewTable(columns)
	values := make([]sql.NullString, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storeErr("failed to scan row", err)
		}
		row := make(dataset.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i].String
		}
		out.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating rows", err)
	}
	return out, nil
}

// Purge drops every table created by a run.
func (s *Store) Purge(ctx context.Context) error {
	query, args, err := s.dialect.listTables().PlaceholderFormat(s.dialect.placeholder()).ToSql()
	if err != nil {
		return storeErr("failed to build query", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return storeErr("failed to list tables", err)
	}
	var temp []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return storeErr("failed to scan table name", err)
		}
		if strings.HasPrefix(name, TempPrefix) && isValidIdentifier(name) {
			temp = append(temp, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storeErr("error iterating tables", err)
	}

	for _, name := range temp {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.quote(name)); err != nil {
			return storeErr(fmt.Sprintf("failed to drop %s", name), err)
		}
		s.logger.Debug("dropped temp table", zap.String("table", name))
	}
	s.logger.Info("purged temp tables", zap.Int("count", len(temp)))
	return nil
}

func storeErr(message string, cause error) error {
	return serr.Wrap(serr.CategoryPersistence, serr.CodeStoreFailed, message, cause)
}

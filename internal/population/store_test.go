package population

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exhibit.db")
	s, err := Open(context.Background(), "sqlite", "sqlite://"+path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rowsOf(columns []string, n int, prefix string) *dataset.Table {
	t := dataset.NewTable(columns)
	for i := 0; i < n; i++ {
		r := make(dataset.Row, len(columns))
		for _, c := range columns {
			r[c] = fmt.Sprintf("%s%d-%s", prefix, i, c)
		}
		t.Append(r)
	}
	return t
}

func TestReferenceTable(t *testing.T) {
	assert.Equal(t, "temp_patients_reference", ReferenceTable("patients"))
}

func TestCommit_CreatesAndAppends(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table := ReferenceTable("patients")

	exists, err := s.Exists(ctx, table)
	require.NoError(t, err)
	assert.False(t, exists)

	order := []string{"id", "visit_date", "sex"}
	require.NoError(t, s.Commit(ctx, table, rowsOf(order, 100, "a")))

	got, err := s.ColumnOrder(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	// later commits arrive in a different column order and are aligned
	require.NoError(t, s.Commit(ctx, table, rowsOf([]string{"sex", "id", "visit_date"}, 30, "b")))
	got, err = s.ColumnOrder(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	n, err := s.Count(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 130, n)

	all, err := s.Rows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, order, all.Columns)
	assert.Equal(t, "a0-id", all.Rows[0]["id"])
	assert.Equal(t, "b29-sex", all.Rows[129]["sex"])
}

func TestCommit_LargeBatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cols := make([]string, 12)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	require.NoError(t, s.Commit(ctx, "temp_wide_reference", rowsOf(cols, 1200, "r")))
	n, err := s.Count(ctx, "temp_wide_reference")
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
}

func TestCommit_ColumnMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table := ReferenceTable("t")
	require.NoError(t, s.Commit(ctx, table, rowsOf([]string{"id", "age"}, 2, "a")))

	err := s.Commit(ctx, table, rowsOf([]string{"id"}, 2, "b"))
	assert.ErrorIs(t, err, serr.ErrColumnOrderMismatch)

	err = s.Commit(ctx, table, rowsOf([]string{"id", "weight"}, 2, "b"))
	assert.ErrorIs(t, err, serr.ErrColumnOrderMismatch)

	n, err := s.Count(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "failed commits must not write")
}

func TestCommit_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Commit(ctx, "temp_e_reference", dataset.NewTable([]string{"id"})))
	exists, err := s.Exists(ctx, "temp_e_reference")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommit_InvalidIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	assert.Error(t, s.Commit(ctx, "temp; DROP TABLE x", rowsOf([]string{"id"}, 1, "a")))
	assert.Error(t, s.Commit(ctx, "temp_ok", rowsOf([]string{"bad name"}, 1, "a")))
}

func TestColumnOrder_MissingTable(t *testing.T) {
	_, err := openTestStore(t).ColumnOrder(context.Background(), "temp_missing")
	require.Error(t, err)
	cat, _ := serr.CategoryOf(err)
	assert.Equal(t, serr.CategoryPersistence, cat)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Commit(ctx, "temp_a_reference", rowsOf([]string{"id"}, 1, "a")))
	require.NoError(t, s.Commit(ctx, "temp_b_reference", rowsOf([]string{"id"}, 1, "b")))
	require.NoError(t, s.Commit(ctx, "keep_me", rowsOf([]string{"id"}, 1, "c")))

	require.NoError(t, s.Purge(ctx))

	for table, want := range map[string]bool{"temp_a_reference": false, "temp_b_reference": false, "keep_me": true} {
		exists, err := s.Exists(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, want, exists, table)
	}
}

func TestOpen_UnknownProvider(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", nil)
	require.Error(t, err)
	cat, _ := serr.CategoryOf(err)
	assert.Equal(t, serr.CategoryConfiguration, cat)
}

func TestDialectQuoting(t *testing.T) {
	assert.Equal(t, `"id"`, sqliteDialect{}.quote("id"))
	assert.Equal(t, `"id"`, postgresDialect{}.quote("id"))
	assert.Equal(t, "`id`", mysqlDialect{}.quote("id"))

	query, args, err := postgresDialect{}.tableExists("temp_x").PlaceholderFormat(postgresDialect{}.placeholder()).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "$1")
	assert.Equal(t, []interface{}{"temp_x"}, args)
}

func TestRows_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table := ReferenceTable("visits")

	// values sort differently from the order they are committed in
	first := dataset.NewTable([]string{"id"})
	for _, id := range []string{"c", "a", "b"} {
		first.Append(dataset.Row{"id": id})
	}
	require.NoError(t, s.Commit(ctx, table, first))
	second := dataset.NewTable([]string{"id"})
	second.Append(dataset.Row{"id": "0"})
	require.NoError(t, s.Commit(ctx, table, second))

	for i := 0; i < 3; i++ {
		got, err := s.Rows(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b", "0"}, got.Column("id"))
	}
}

func TestDialectRowOrder(t *testing.T) {
	columns := []string{"id", "visit_date"}
	assert.Equal(t, []string{"rowid"}, sqliteDialect{}.rowOrder(columns))
	assert.Equal(t, []string{`"id"`, `"visit_date"`}, postgresDialect{}.rowOrder(columns))
	assert.Equal(t, []string{"`id`", "`visit_date`"}, mysqlDialect{}.rowOrder(columns))

	query, _, err := squirrel.Select(quoteAll(postgresDialect{}, columns)...).
		From(postgresDialect{}.quote("temp_visits_reference")).
		OrderBy(postgresDialect{}.rowOrder(columns)...).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "visit_date" FROM "temp_visits_reference" ORDER BY "id", "visit_date"`, query)
}

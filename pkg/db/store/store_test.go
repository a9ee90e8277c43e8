package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE interviews (
	id integer PRIMARY KEY AUTOINCREMENT,
	uid text NOT NULL,
	visit_date text NOT NULL,
	site text,
	priority integer DEFAULT 3,
	create_timestamp datetime,
	update_timestamp datetime,
	UNIQUE (uid, visit_date)
)`

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "alder.db")})
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.DB().Exec(testSchema).Error)
	return s
}

func newInterview(t *testing.T, s *Store, uid, visit string) *Record {
	t.Helper()
	ctx := context.Background()
	r, err := s.Record(ctx, "interviews")
	require.NoError(t, err)
	require.NoError(t, r.Set("uid", uid))
	require.NoError(t, r.Set("visit_date", visit))
	require.NoError(t, r.Save(ctx))
	return r
}

func TestCatalogReflectsColumns(t *testing.T) {
	s := setupTestStore(t)

	table, err := s.Catalog().Table(context.Background(), "interviews")
	require.NoError(t, err)

	for _, name := range []string{"id", "uid", "visit_date", "site", "priority", "create_timestamp", "update_timestamp"} {
		assert.True(t, table.Has(name), name)
	}

	priority, ok := table.Column("priority")
	require.True(t, ok)
	assert.EqualValues(t, 3, AsInt64(priority.Default))

	id, _ := table.Column("id")
	assert.True(t, id.PrimaryKey)
	assert.False(t, id.Nullable)

	uid, _ := table.Column("uid")
	assert.False(t, uid.Nullable)
	assert.False(t, uid.PrimaryKey)
	assert.Equal(t, "text", uid.Type)

	site, _ := table.Column("site")
	assert.True(t, site.Nullable)
	assert.Nil(t, site.Default)
}

func TestCatalogQuotedDefaults(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.DB().Exec(`CREATE TABLE "odd table" (
	id integer PRIMARY KEY,
	side text NOT NULL DEFAULT 'none',
	ratio real DEFAULT 0.5,
	created datetime DEFAULT CURRENT_TIMESTAMP
)`).Error)

	table, err := s.Catalog().Table(context.Background(), "odd table")
	require.NoError(t, err)

	side, ok := table.Column("side")
	require.True(t, ok)
	assert.Equal(t, "none", side.Default)
	assert.False(t, side.Nullable)

	ratio, _ := table.Column("ratio")
	assert.Equal(t, 0.5, ratio.Default)

	created, _ := table.Column("created")
	assert.Nil(t, created.Default)
}

func TestCatalogUnknownTable(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Record(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTable))

	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestRecordDefaults(t *testing.T) {
	s := setupTestStore(t)

	r, err := s.Record(context.Background(), "interviews")
	require.NoError(t, err)

	v, err := r.Get("priority")
	require.NoError(t, err)
	assert.EqualValues(t, 3, AsInt64(v))

	v, err = r.Get("site")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.False(t, r.IsLoaded())
}

func TestRecordSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r, err := s.Record(ctx, "interviews")
	require.NoError(t, err)
	require.NoError(t, r.Set("uid", "A123456"))
	require.NoError(t, r.Set("visit_date", "2015-03-02"))
	require.NoError(t, r.Set("site", "Hamilton"))
	require.NoError(t, r.Set("priority", int64(7)))
	require.NoError(t, r.Save(ctx))
	require.True(t, r.IsLoaded())

	loaded, err := s.Record(ctx, "interviews")
	require.NoError(t, err)
	found, err := loaded.Load(ctx, map[string]any{"id": r.ID()})
	require.NoError(t, err)
	require.True(t, found)

	for column, want := range map[string]any{
		"uid":        "A123456",
		"visit_date": "2015-03-02",
		"site":       "Hamilton",
		"priority":   int64(7),
	} {
		got, err := loaded.Get(column)
		require.NoError(t, err)
		assert.Equal(t, want, got, column)
	}

	created, _ := loaded.Get("create_timestamp")
	assert.NotNil(t, created)
}

func TestRecordInsertReadsBackMaxID(t *testing.T) {
	s := setupTestStore(t)

	first := newInterview(t, s, "A1", "2015-01-01")
	second := newInterview(t, s, "A2", "2015-01-01")

	assert.Equal(t, int64(1), first.ID())
	assert.Equal(t, int64(2), second.ID())
}

func TestRecordUpdate(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r := newInterview(t, s, "B1", "2016-05-05")
	require.NoError(t, r.Set("site", "Victoria"))
	require.NoError(t, r.Save(ctx))

	site, err := s.SelectValue(ctx, "SELECT site FROM interviews WHERE id = ?", r.ID())
	require.NoError(t, err)
	assert.Equal(t, "Victoria", site)

	count, err := s.SelectValue(ctx, "SELECT COUNT(*) FROM interviews")
	require.NoError(t, err)
	assert.EqualValues(t, 1, AsInt64(count))
}

func TestRecordLoadNotFoundAndMultiple(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	newInterview(t, s, "C1", "2015-01-01")
	newInterview(t, s, "C1", "2018-01-01")

	r := s.NewRecord("interviews")
	found, err := r.Load(ctx, map[string]any{"uid": "missing"})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = r.Load(ctx, map[string]any{"uid": "C1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMultipleRows))

	found, err = r.Load(ctx, map[string]any{"uid": "C1", "visit_date": "2018-01-01"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = r.Load(ctx, map[string]any{"uid": "C1", "site": nil, "visit_date": "2015-01-01"})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRecordUnknownColumn(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r, err := s.Record(ctx, "interviews")
	require.NoError(t, err)

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.True(t, errors.Is(r.Set("nope", 1), ErrUnknownColumn))

	_, err = r.Load(ctx, map[string]any{"nope": 1})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	uninitialized := s.NewRecord("interviews")
	_, err = uninitialized.Get("uid")
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestRecordRemove(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r, err := s.Record(ctx, "interviews")
	require.NoError(t, err)
	assert.True(t, errors.Is(r.Remove(ctx), ErrMissingPrimaryKey))

	saved := newInterview(t, s, "D1", "2015-01-01")
	require.NoError(t, saved.Remove(ctx))
	assert.False(t, saved.IsLoaded())

	count, err := s.SelectValue(ctx, "SELECT COUNT(*) FROM interviews")
	require.NoError(t, err)
	assert.Zero(t, AsInt64(count))
}

func TestDatabaseErrorCarriesStatement(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	newInterview(t, s, "E1", "2015-01-01")
	r, err := s.Record(ctx, "interviews")
	require.NoError(t, err)
	require.NoError(t, r.Set("uid", "E1"))
	require.NoError(t, r.Set("visit_date", "2015-01-01"))

	err = r.Save(ctx)
	require.Error(t, err)

	var dbErr *DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Contains(t, dbErr.Statement, "INSERT INTO interviews")
}

func TestParseDefault(t *testing.T) {
	assert.Nil(t, parseDefault("NULL"))
	assert.Nil(t, parseDefault("CURRENT_TIMESTAMP"))
	assert.Nil(t, parseDefault("(datetime('now'))"))
	assert.Equal(t, "none", parseDefault("'none'"))
	assert.Equal(t, "it's", parseDefault("'it''s'"))
	assert.Equal(t, int64(0), parseDefault("0"))
	assert.Equal(t, int64(1), parseDefault("true"))
	assert.Equal(t, 1.5, parseDefault("1.5"))
	assert.Equal(t, "none", parseDefault("none"))
}

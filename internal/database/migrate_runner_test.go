package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "tags", UpScript: "CREATE TABLE tags (id INTEGER PRIMARY KEY, label TEXT NOT NULL)", DownScript: "DROP TABLE tags"},
		{Version: 2, Name: "tag_index", UpScript: "CREATE INDEX idx_tags_label ON tags (label)", DownScript: "DROP INDEX idx_tags_label"},
	}
}

func TestRunnerUpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	r := NewRunner(db, testMigrations())

	applied, err := r.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	n, err := r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("tags"))

	n, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second run is a no-op")

	require.NoError(t, r.Down(ctx, 2))
	pending, err := r.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "000002_tag_index", pending[0].String())

	assert.ErrorContains(t, r.Down(ctx, 2), "has not been applied")
	assert.ErrorContains(t, r.Down(ctx, 9), "not found")
}

func TestRunnerFailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	broken := append(testMigrations(), Migration{Version: 3, Name: "broken", UpScript: "CREATE TABLE"})
	_, err = NewRunner(db, broken).Up(ctx)
	require.Error(t, err)

	applied, err := NewRunner(db, broken).Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
}

func TestRunnerRejectsUnknownVersions(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	_, err = NewRunner(db, testMigrations()).Up(ctx)
	require.NoError(t, err)

	_, err = NewRunner(db, testMigrations()[:1]).Up(ctx)
	assert.ErrorContains(t, err, "000002")
}

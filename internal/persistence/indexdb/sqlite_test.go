package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/sim/catalogs"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world"
)

func TestSQLiteIndex_WritesAndQueries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "timewarp.sqlite")
	idx, err := OpenSQLite(dbPath)
	require.NoError(t, err)

	ticks := idx.Ticks("run")
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, ticks.WriteTick(world.TickLogEntry{Tick: i, Map: "intro", Keys: []string{"D", "LSHIFT"}, Digest: "d"}))
	}
	first, second := uuid.NewString(), uuid.NewString()
	require.NoError(t, idx.WriteSearch(tlog.SearchEntry{ID: first, RunID: "run", Tick: 3, Map: "intro", Outcome: "reached", PathTicks: 40}))
	require.NoError(t, idx.WriteSearch(tlog.SearchEntry{ID: second, RunID: "run", Tick: 3, Map: "intro", Outcome: "timed_out"}))
	idx.RecordSubmission(Submission{BatchID: uuid.NewString(), FirstTick: 1, LastTick: 3, Frames: 3})
	idx.RecordSubmission(Submission{})
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	// Writes after close are dropped.
	require.NoError(t, ticks.WriteTick(world.TickLogEntry{Tick: 9}))

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	searches, err := r.RecentSearches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, searches, 2)
	assert.Equal(t, second, searches[0].ID)
	assert.Equal(t, "run", searches[0].RunID)
	assert.Equal(t, "timed_out", searches[0].Outcome)
	assert.Equal(t, 40, searches[1].PathTicks)

	subs, err := r.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, uint64(3), subs[0].LastTick)
	assert.False(t, subs[0].At.IsZero())

	d, ok, err := r.TickDigest(ctx, "run", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "d", d)
	_, ok, err = r.TickDigest(ctx, "run", 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteIndex_TicksAreKeyedByRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timewarp.sqlite")
	idx, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, idx.Ticks("first").WriteTick(world.TickLogEntry{Tick: 1, Map: "intro", Digest: "aaa"}))
	require.NoError(t, idx.Ticks("second").WriteTick(world.TickLogEntry{Tick: 1, Map: "intro", Digest: "bbb"}))
	require.NoError(t, idx.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	d, ok, err := r.TickDigest(ctx, "first", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "aaa", d)
	d, ok, err = r.TickDigest(ctx, "second", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bbb", d)
	_, ok, err = r.TickDigest(ctx, "third", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenSQLite_DropsTicksWithoutRunColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timewarp.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ticks (tick INTEGER PRIMARY KEY, map TEXT NOT NULL, keys TEXT NOT NULL,
		switching INTEGER NOT NULL, won INTEGER NOT NULL, lost INTEGER NOT NULL, digest TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ticks VALUES (1,'intro','[]',0,0,0,'old')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	idx, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, idx.Ticks("run").WriteTick(world.TickLogEntry{Tick: 1, Map: "intro", Digest: "new"}))
	require.NoError(t, idx.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()
	d, ok, err := r.TickDigest(context.Background(), "run", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", d)
}

func TestSQLiteIndex_UpsertConfigs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timewarp.sqlite")
	idx, err := OpenSQLite(dbPath)
	require.NoError(t, err)

	maps, err := catalogs.New(catalogs.MapDef{
		ID:     "only",
		Player: catalogs.PlayerDef{W: 10, H: 10, Health: 1},
	})
	require.NoError(t, err)
	require.NoError(t, idx.UpsertConfigs(maps, tuning.Default()))
	require.NoError(t, idx.UpsertConfigs(maps, tuning.Default()))
	require.NoError(t, idx.Close())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM configs`).Scan(&n))
	assert.Equal(t, 2, n)
	var digest string
	require.NoError(t, db.QueryRow(`SELECT digest FROM configs WHERE name='maps'`).Scan(&digest))
	assert.Equal(t, maps.Digest, digest)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

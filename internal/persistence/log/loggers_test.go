package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/world"
)

func TestTickLogger_RotatesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: i, Map: "intro", Keys: []string{"D"}, Digest: "h"}))
	}
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 4, Map: "intro", Keys: []string{}, Switching: true}))
	require.NoError(t, l.Close())

	files, err := ListTickFiles(filepath.Join(dir, "ticks"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "ticks-2026-03-01-10.jsonl.zst", filepath.Base(files[0]))
	assert.Equal(t, "ticks-2026-03-01-11.jsonl.zst", filepath.Base(files[1]))

	var got []world.TickLogEntry
	for _, f := range files {
		require.NoError(t, ReadTicks(f, func(e world.TickLogEntry) error {
			got = append(got, e)
			return nil
		}))
	}
	require.Len(t, got, 4)
	assert.Equal(t, uint64(1), got[0].Tick)
	assert.Equal(t, []string{"D"}, got[0].Keys)
	assert.True(t, got[3].Switching)
}

func TestReadTicks_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: i}))
	}
	require.NoError(t, l.Close())
	files, err := ListTickFiles(filepath.Join(dir, "ticks"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	stop := errors.New("stop")
	n := 0
	err = ReadTicks(files[0], func(world.TickLogEntry) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestSearchLogger_Writes(t *testing.T) {
	dir := t.TempDir()
	l := NewSearchLogger(dir)
	require.NoError(t, l.WriteSearch(SearchEntry{ID: "s", RunID: "r", Outcome: "reached", PathTicks: 10}))
	require.NoError(t, l.Close())
	matches, err := filepath.Glob(filepath.Join(dir, "search", "search-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

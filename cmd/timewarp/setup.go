package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"timewarp.dev/internal/persistence/indexdb"
	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/catalogs"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/search"
	"timewarp.dev/internal/sim/session"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world"
)

type gameConfig struct {
	tune tuning.Tuning
	maps *catalogs.Catalog
}

func (a *app) loadGame() (gameConfig, error) {
	tune, err := tuning.Load(filepath.Join(a.cfg.ConfigDir, "tuning.yaml"))
	if err != nil {
		return gameConfig{}, fmt.Errorf("load tuning: %w", err)
	}
	maps, err := catalogs.Load(filepath.Join(a.cfg.ConfigDir, "maps"))
	if err != nil {
		return gameConfig{}, fmt.Errorf("load maps: %w", err)
	}
	return gameConfig{tune: tune, maps: maps}, nil
}

func (a *app) newWorld(e gameConfig) (*world.World, error) {
	return world.New(world.Config{Tuning: e.tune, Maps: e.maps, Logger: a.log, Seed: a.cfg.Seed})
}

func (a *app) indexPath() string { return filepath.Join(a.cfg.DataDir, "index.sqlite") }

func (a *app) runDir(runID string) string { return filepath.Join(a.cfg.DataDir, "runs", runID) }

func newRunID() string { return uuid.NewString() }

// parsePoint reads "x,y".
func parsePoint(s string) (geom.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geom.Point{}, fmt.Errorf("target %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("target %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("target %q: %w", s, err)
	}
	return geom.Point{X: x, Y: y}, nil
}

// tickLogs fans committed ticks out to several logs.
type tickLogs []session.TickLog

func (t tickLogs) WriteTick(e world.TickLogEntry) error {
	var first error
	for _, l := range t {
		if err := l.WriteTick(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// indexedSubmitter records every delivered batch in the index.
type indexedSubmitter struct {
	next session.Submitter
	idx  *indexdb.SQLiteIndex
}

func (s indexedSubmitter) Submit(ctx context.Context, batch []protocol.GameInfoMsg) error {
	if err := s.next.Submit(ctx, batch); err != nil {
		return err
	}
	if len(batch) > 0 {
		s.idx.RecordSubmission(indexdb.Submission{
			BatchID:   uuid.NewString(),
			FirstTick: batch[0].Tick,
			LastTick:  batch[len(batch)-1].Tick,
			Frames:    len(batch),
			At:        time.Now(),
		})
	}
	return nil
}

// searchRecorder writes one entry per planner call to the search log and
// the index.
type searchRecorder struct {
	runID string
	log   *tlog.SearchLogger
	idx   *indexdb.SQLiteIndex
}

func (r searchRecorder) record(from *world.Snapshot, target geom.Point, res search.Result[*world.Snapshot]) error {
	e := tlog.SearchEntry{
		ID:        uuid.NewString(),
		RunID:     r.runID,
		Tick:      from.Tick(),
		Map:       from.Map(),
		TargetX:   target.X,
		TargetY:   target.Y,
		Outcome:   string(res.Outcome),
		PathTicks: len(res.Path),
		Expanded:  res.Expanded,
		Visited:   res.Visited,
		ElapsedMs: res.Elapsed.Milliseconds(),
	}
	_ = r.idx.WriteSearch(e)
	if r.log == nil {
		return nil
	}
	return r.log.WriteSearch(e)
}

// Package session is the loop that drives a world for a human: real-time
// play, or rewind mode where every tick lands on a timeline that can be
// undone, redone, extended by the planner and finally submitted.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/history"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/search"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world"
)

var (
	ErrRealTime       = errors.New("session: not available in real time")
	ErrPendingHistory = errors.New("session: timeline has uncommitted ticks")
)

// Submitter delivers committed game info to the game server.
type Submitter interface {
	Submit(ctx context.Context, batch []protocol.GameInfoMsg) error
}

// TickLog records committed ticks.
type TickLog interface {
	WriteTick(e world.TickLogEntry) error
}

type Config struct {
	World  *world.World
	Search tuning.Search

	// Submitter and TickLog are optional.
	Submitter Submitter
	TickLog   TickLog
	Logger    *slog.Logger
}

// Controls is the player's input for one frame.
type Controls struct {
	Keys input.Keys
	Undo bool
	Redo bool
}

type Session struct {
	w        *world.World
	timeline *history.Timeline[*world.Snapshot]
	planner  *search.Planner[*world.Snapshot]
	submit   Submitter
	ticks    TickLog
	log      *slog.Logger

	committed input.Recording
	lastPath  []geom.Point
}

func New(cfg Config) (*Session, error) {
	if cfg.World == nil {
		return nil, errors.New("session: nil world")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		w:        cfg.World,
		timeline: history.New[*world.Snapshot](),
		planner:  search.New[*world.Snapshot](cfg.World, search.Config{Tuning: cfg.Search, Logger: log}),
		submit:   cfg.Submitter,
		ticks:    cfg.TickLog,
		log:      log.With("component", "session"),
	}, nil
}

func (s *Session) World() *world.World { return s.w }

func (s *Session) Timeline() *history.Timeline[*world.Snapshot] { return s.timeline }

func (s *Session) RealTime() bool { return s.w.RealTime() }

// Status is a one-line summary of the mode and timeline position for a
// frame with controls c, e.g. "SIM (3/10) RUNNING".
func (s *Session) Status(c Controls) string {
	if s.w.RealTime() {
		return "REALTIME"
	}
	cur, n := s.timeline.Cursor(), s.timeline.Len()
	activity := "PAUSED"
	switch {
	case c.Undo && cur > 0:
		activity = "UNDOING"
	case c.Redo && cur < n-1:
		activity = "REDOING"
	case !c.Keys.Empty():
		activity = "RUNNING"
	}
	return fmt.Sprintf("SIM (%d/%d) %s", cur+1, n, activity)
}

// ToggleRealTime leaves real time freely, but only enters it once every
// simulated tick has been submitted.
func (s *Session) ToggleRealTime() error {
	if s.w.RealTime() {
		s.w.SetRealTime(false)
		s.log.Info("rewind mode")
		return nil
	}
	if s.timeline.Len() > 0 {
		return ErrPendingHistory
	}
	s.w.SetRealTime(true)
	s.log.Info("real time")
	return nil
}

// Update runs one frame. In real time the world ticks with c.Keys. In rewind
// mode Undo and Redo move along the timeline, and held keys run one more
// tick which is appended after the cursor.
func (s *Session) Update(c Controls) error {
	if s.w.RealTime() {
		s.w.SetPressedKeys(c.Keys)
		return s.w.Tick()
	}
	if c.Undo {
		if err := s.step(false); err != nil {
			return err
		}
	}
	if c.Redo {
		if err := s.step(true); err != nil {
			return err
		}
	}
	if c.Keys.Empty() {
		return nil
	}
	return s.advance(c.Keys)
}

func (s *Session) step(forward bool) error {
	snap, ok, err := s.timeline.Step(forward)
	if err != nil {
		return err
	}
	if ok {
		s.w.Restore(snap)
	}
	return nil
}

// advance runs any pending map switch as a bracketed block, then one tick
// with keys, and appends the results.
func (s *Session) advance(keys input.Keys) error {
	if err := s.skipSwitch(); err != nil {
		return err
	}
	if err := s.tick(keys); err != nil {
		return err
	}
	s.timeline.Append(s.w.Backup())
	return nil
}

func (s *Session) skipSwitch() error {
	if !s.w.Switching() {
		return nil
	}
	s.timeline.AppendSentinel()
	for s.w.Switching() {
		if err := s.w.Tick(); err != nil {
			return err
		}
		s.timeline.Append(s.w.Backup())
	}
	s.timeline.AppendSentinel()
	return nil
}

// tick runs one tick with the human's keys. While the player's controls
// are inverted the keys are inverted first, using the setting the tick will
// read, so they act the way they were meant and the world records the keys
// the game itself sees.
func (s *Session) tick(keys input.Keys) error {
	p := s.w.Player()
	s.w.SetPressedKeys(humanKeys(keys, p != nil && p.InvertedControls))
	return s.w.Tick()
}

func humanKeys(keys input.Keys, inverted bool) input.Keys {
	if inverted {
		return keys.Inverted()
	}
	return keys
}

// Navigate searches for a path to target and, when one is found, appends it
// after the cursor and moves the world to its end. Ticks the path spends in
// a map switch are bracketed like the ones Update runs. A path that ends
// inside a switch runs the switch to its end before the block is closed.
func (s *Session) Navigate(ctx context.Context, target geom.Point) (search.Result[*world.Snapshot], error) {
	if s.w.RealTime() {
		return search.Result[*world.Snapshot]{}, ErrRealTime
	}
	if s.w.Player() == nil {
		return search.Result[*world.Snapshot]{}, fmt.Errorf("session: navigate: %w", world.ErrNoPlayer)
	}
	start := s.w.Backup()
	res, err := s.planner.Find(ctx, target)
	if err != nil {
		return res, err
	}
	if !res.Found() || len(res.Path) == 0 {
		return res, nil
	}

	s.lastPath = nil
	prev, inBlock := start, false
	for _, snap := range res.Path {
		if prev.Switching() != inBlock {
			s.timeline.AppendSentinel()
			inBlock = !inBlock
		}
		s.timeline.Append(snap)
		if b, ok := snap.Player(); ok {
			s.lastPath = append(s.lastPath, b.Pos())
		}
		prev = snap
	}
	s.w.Restore(res.Path[len(res.Path)-1])
	if inBlock {
		for s.w.Switching() {
			if err := s.w.Tick(); err != nil {
				return res, err
			}
			s.timeline.Append(s.w.Backup())
		}
		s.timeline.AppendSentinel()
	}
	s.log.Info("navigated", "target", target, "ticks", len(res.Path), "cursor", s.timeline.Cursor())
	return res, nil
}

// LastPath is the player position at every tick of the last path
// Navigate appended.
func (s *Session) LastPath() []geom.Point { return s.lastPath }

// Submit sends the game info of every tick up to the cursor, writes them to
// the tick log and removes them from the timeline. Nothing is removed when
// delivery fails. It returns the number of ticks committed.
func (s *Session) Submit(ctx context.Context) (int, error) {
	cur := s.timeline.Cursor()
	if cur < 0 {
		return 0, nil
	}
	entries := s.timeline.Entries()
	entries = entries[:min(cur+1, len(entries))]

	var batch []protocol.GameInfoMsg
	for _, e := range entries {
		if e.Sentinel {
			continue
		}
		if info, ok := e.State.LastSent(); ok {
			batch = append(batch, info)
		}
	}
	if s.submit != nil && len(batch) > 0 {
		if err := s.submit.Submit(ctx, batch); err != nil {
			return 0, fmt.Errorf("session: submit %d ticks: %w", len(batch), err)
		}
	}

	drained := s.timeline.DrainToCursor()
	n := 0
	for _, e := range drained {
		if e.Sentinel {
			continue
		}
		n++
		if s.ticks != nil {
			if err := s.ticks.WriteTick(e.State.LogEntry()); err != nil {
				s.log.Warn("tick log write failed", "tick", e.State.Tick(), "err", err)
			}
		}
	}
	s.committed = append(s.committed, frames(drained)...)
	s.log.Info("submitted", "ticks", n, "sent", len(batch), "remaining", s.timeline.Len())
	return n, nil
}

// Inputs returns the keys of every committed tick followed by those of the
// timeline up to the cursor, with a gap for each bracketed block.
func (s *Session) Inputs() input.Recording {
	out := append(input.Recording(nil), s.committed...)
	entries := s.timeline.Entries()
	if cur := s.timeline.Cursor(); cur >= 0 {
		out = append(out, frames(entries[:min(cur+1, len(entries))])...)
	}
	return out
}

func frames(entries []history.Entry[*world.Snapshot]) input.Recording {
	var out input.Recording
	inBlock := false
	for _, e := range entries {
		switch {
		case e.Sentinel:
			if !inBlock {
				out = append(out, input.Frame{Gap: true})
			}
			inBlock = !inBlock
		case !inBlock:
			out = append(out, input.Frame{Keys: e.State.Keys()})
		}
	}
	return out
}

// Replay feeds a recording through the timeline as if it had been played
// in rewind mode. Frame keys are the keys the world saw, so they are applied
// as they are.
func (s *Session) Replay(rec input.Recording) error {
	if s.w.RealTime() {
		return ErrRealTime
	}
	for i, f := range rec {
		var err error
		if f.Gap {
			err = s.skipSwitch()
		} else {
			err = s.replayTick(f.Keys)
		}
		if err != nil {
			return fmt.Errorf("session: replay frame %d: %w", i, err)
		}
	}
	return nil
}

func (s *Session) replayTick(keys input.Keys) error {
	if err := s.skipSwitch(); err != nil {
		return err
	}
	s.w.SetPressedKeys(keys)
	if err := s.w.Tick(); err != nil {
		return err
	}
	s.timeline.Append(s.w.Backup())
	return nil
}

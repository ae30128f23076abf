// Package search finds key presses that walk the controlled entity to a
// target point. It explores futures by restoring a snapshot, holding a
// candidate key set for a few ticks and snapshotting the result, always
// expanding whichever explored state ended closest to the target.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/physics"
)

var ErrNoControlled = errors.New("search: no controlled entity")

// Sim is the part of the world the planner drives.
type Sim[S any] interface {
	Backup() S
	Restore(S)
	Tick() error

	PressedKeys() input.Keys
	SetPressedKeys(input.Keys)
	Simulating() bool
	SetSimulating(bool)

	Controlled() (entity.Body, bool)
	ControlledIn(S) (entity.Body, bool)
	Collisions() physics.Collisions
}

type Outcome string

const (
	Reached   Outcome = "reached"
	TimedOut  Outcome = "timed_out"
	Exhausted Outcome = "exhausted"
)

// Result of a search. Path holds one snapshot per simulated tick, in order,
// and is nil unless the target was reached. A start that already covers the
// target yields an empty, non-nil path.
type Result[S any] struct {
	Path     []S
	Outcome  Outcome
	Expanded int
	Visited  int
	Elapsed  time.Duration
}

func (r Result[S]) Found() bool { return r.Outcome == Reached }

type Config struct {
	Tuning tuning.Search
	Logger *slog.Logger
}

// Planner is single-threaded and owns the Sim for the duration of Find.
type Planner[S any] struct {
	sim Sim[S]
	cfg tuning.Search
	log *slog.Logger
	now func() time.Time
}

func New[S any](sim Sim[S], cfg Config) *Planner[S] {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Planner[S]{
		sim: sim,
		cfg: cfg.Tuning,
		log: log.With("component", "search"),
		now: time.Now,
	}
}

type visit[S any] struct {
	states []S
	prev   Key
}

const (
	pruneDeath  = "death"
	pruneDamage = "damage"
	pruneWall   = "wall"
	pruneFloor  = "floor"
	pruneEmpty  = "empty"
)

// Find searches for a path to target. Whatever happens the world is back at
// its starting state when Find returns, with its keys and simulating flag
// as they were. Running out of time (the configured timeout or ctx) is not
// an error: the result simply has no path. An error from Tick aborts the
// search and is returned.
func (p *Planner[S]) Find(ctx context.Context, target geom.Point) (res Result[S], err error) {
	begin := p.now()
	body, ok := p.sim.Controlled()
	if !ok {
		return res, ErrNoControlled
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()

	keys, simulating := p.sim.PressedKeys(), p.sim.Simulating()
	p.sim.SetSimulating(true)
	init := p.sim.Backup()
	defer func() {
		p.sim.SetPressedKeys(keys)
		p.sim.SetSimulating(simulating)
		res.Elapsed = p.now().Sub(begin)
		outcome := string(res.Outcome)
		if err != nil {
			outcome = "error"
		}
		searchTotal.WithLabelValues(outcome).Inc()
		searchDuration.WithLabelValues(outcome).Observe(res.Elapsed.Seconds())
		searchExpanded.Observe(float64(res.Expanded))
	}()
	defer func() {
		if r := recover(); r != nil {
			p.sim.Restore(init)
			panic(r)
		}
	}()

	startKey := Quantize(p.cfg, body, target)
	visited := map[Key]*visit[S]{startKey: nil}
	var f frontier[S]
	var seq uint64
	f.push(&node[S]{state: init, key: startKey, dist: geom.Dist(body.Pos(), target)})

	finish := func(o Outcome) {
		p.sim.Restore(init)
		res.Outcome = o
		res.Visited = len(visited)
	}

	for f.Len() > 0 {
		if ctx.Err() != nil {
			finish(TimedOut)
			p.log.Info("search timed out", "target", target, "expanded", res.Expanded, "visited", res.Visited)
			return res, nil
		}
		n := f.pop()
		b, ok := p.sim.ControlledIn(n.state)
		if !ok {
			continue
		}
		if b.Outline.Contains(target) {
			res.Path = traceback(visited, n.key)
			finish(Reached)
			searchPathLength.Observe(float64(len(res.Path)))
			p.log.Info("path found", "target", target, "ticks", len(res.Path), "expanded", res.Expanded, "visited", res.Visited)
			return res, nil
		}
		res.Expanded++

		for _, in := range Inputs(b) {
			states, reason, err := p.expand(n.state, in)
			if err != nil {
				finish("")
				return res, fmt.Errorf("search: expand %v with %s: %w", n.key, in, err)
			}
			if states == nil {
				searchPruned.WithLabelValues(reason).Inc()
				continue
			}
			nb, _ := p.sim.Controlled()
			k := Quantize(p.cfg, nb, target)
			if _, seen := visited[k]; seen {
				continue
			}
			visited[k] = &visit[S]{states: states, prev: n.key}
			seq++
			f.push(&node[S]{state: states[len(states)-1], key: k, dist: geom.Dist(nb.Pos(), target), seq: seq})
		}
	}
	finish(Exhausted)
	p.log.Info("search exhausted", "target", target, "expanded", res.Expanded, "visited", res.Visited)
	return res, nil
}

// expand holds keys (plus run) for the look-ahead window starting at from
// and returns one snapshot per tick, or nil and the reason the branch was
// abandoned.
func (p *Planner[S]) expand(from S, keys input.Keys) ([]S, string, error) {
	p.sim.Restore(from)
	p.sim.SetPressedKeys(keys.With(input.KeyLShift))
	states := make([]S, 0, p.cfg.PressingLength)
	for range p.cfg.PressingLength {
		before, _ := p.sim.Controlled()
		if err := p.sim.Tick(); err != nil {
			return nil, "", err
		}
		after, ok := p.sim.Controlled()
		if !ok || after.Dead {
			return nil, pruneDeath, nil
		}
		if after.Health < before.Health-p.cfg.DamageThreshold {
			return nil, pruneDamage, nil
		}
		c := p.sim.Collisions()
		if len(c.X) > 0 {
			return nil, pruneWall, nil
		}
		for _, ct := range c.Y {
			if ct.MPV.Y > 0 {
				return nil, pruneFloor, nil
			}
		}
		states = append(states, p.sim.Backup())
	}
	if len(states) == 0 {
		return nil, pruneEmpty, nil
	}
	return states, "", nil
}

func traceback[S any](visited map[Key]*visit[S], k Key) []S {
	var chunks [][]S
	for v := visited[k]; v != nil; v = visited[v.prev] {
		chunks = append(chunks, v.states)
	}
	path := []S{}
	for i := len(chunks) - 1; i >= 0; i-- {
		path = append(path, chunks[i]...)
	}
	return path
}

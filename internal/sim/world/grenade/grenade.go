// Package grenade simulates thrown grenades that explode after a fuse.
package grenade

import (
	"fmt"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/tuning"
)

const (
	size     = 6
	drag     = 0.9
	minSpeed = 0.05
)

type Grenade struct {
	noCopy snapshot.NoCopy

	Body   *entity.Object `snap:"-"`
	Fuse   int
	Radius float64
	Damage float64
}

type GrenadeSnapshot struct {
	Props snapshot.Properties
	Body  entity.Snapshot
}

func (g *Grenade) Backup() GrenadeSnapshot {
	snapshot.Must(g.Body != nil, "grenade", "grenade without body")
	snapshot.Must(g.Fuse >= 0, "grenade", "grenade %s has negative fuse %d", g.Body.ID, g.Fuse)
	return GrenadeSnapshot{Props: snapshot.Capture(g), Body: g.Body.Backup()}
}

func (g *Grenade) Restore(s GrenadeSnapshot) {
	snapshot.Apply(g, s.Props)
	g.Body.Restore(s.Body)
}

// Explosion is one detonation reported by Step.
type Explosion struct {
	ID  string
	X   float64
	Y   float64
	Hit []string
}

type System struct {
	noCopy snapshot.NoCopy

	Grenades []*Grenade `snap:"-"`

	NextID     int
	Explosions int

	params tuning.Grenade
}

func New(params tuning.Grenade) *System {
	return &System{params: params}
}

func (s *System) Throw(from *entity.Object, vx, vy float64) *Grenade {
	s.NextID++
	body := entity.New(fmt.Sprintf("grenade-%d", s.NextID), entity.KindGrenade, from.X, from.Y, size, size)
	body.VX, body.VY = vx, vy
	g := &Grenade{Body: body, Fuse: s.params.FuseTicks, Radius: s.params.BlastRadius, Damage: s.params.Damage}
	s.Grenades = append(s.Grenades, g)
	return g
}

// Step moves grenades and detonates those whose fuse ran out, hurting every
// target within the blast radius.
func (s *System) Step(targets []*entity.Object) []Explosion {
	var out []Explosion
	live := s.Grenades[:0]
	for _, g := range s.Grenades {
		b := g.Body
		b.Move(b.VX, b.VY)
		b.VX *= drag
		b.VY *= drag
		if b.VX*b.VX+b.VY*b.VY < minSpeed*minSpeed {
			b.VX, b.VY = 0, 0
		}
		if g.Fuse > 0 {
			g.Fuse--
		}
		if g.Fuse > 0 {
			live = append(live, g)
			continue
		}
		ex := Explosion{ID: b.ID, X: b.X, Y: b.Y}
		for _, t := range targets {
			if !t.Dead && b.Hitbox().Near(t.Hitbox(), g.Radius) {
				t.Hurt(g.Damage)
				ex.Hit = append(ex.Hit, t.ID)
			}
		}
		s.Explosions++
		out = append(out, ex)
	}
	clear(s.Grenades[len(live):])
	s.Grenades = live
	return out
}

type Snapshot struct {
	Props    snapshot.Properties
	Grenades []*snapshot.Held[*Grenade, GrenadeSnapshot]
}

func (s *System) Backup() Snapshot {
	return Snapshot{
		Props:    snapshot.Capture(s),
		Grenades: snapshot.HoldAll[*Grenade, GrenadeSnapshot](s.Grenades),
	}
}

func (s *System) Restore(snap Snapshot) {
	snapshot.Apply(s, snap.Props)
	s.Grenades = snapshot.RestoreAll(s.Grenades, snap.Grenades)
}

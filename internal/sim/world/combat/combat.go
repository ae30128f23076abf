// Package combat runs turrets and the projectiles they fire.
package combat

import (
	"fmt"
	"math"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/rng"
)

// Weapon is a turret bound to a world object. Last is the most recent
// projectile it fired, which may still be in flight.
type Weapon struct {
	noCopy snapshot.NoCopy

	Obj      *entity.Object
	Interval int
	Cooldown int
	Damage   float64
	Spread   float64
	Last     *Projectile
	Shots    int
}

func (w *Weapon) Backup() snapshot.Properties {
	snapshot.Must(w.Obj != nil, "combat", "weapon without object")
	if w.Last != nil {
		snapshot.Must(w.Last.Owner == w.Obj.ID, "combat", "weapon %s holds projectile %s fired by %s", w.Obj.ID, w.Last.Body.ID, w.Last.Owner)
	}
	return snapshot.Capture(w)
}

func (w *Weapon) Restore(p snapshot.Properties) { snapshot.Apply(w, p) }

type Projectile struct {
	noCopy snapshot.NoCopy

	Body   *entity.Object `snap:"-"`
	Owner  string
	TTL    int
	Damage float64
}

type ProjectileSnapshot struct {
	Props snapshot.Properties
	Body  entity.Snapshot
}

func (p *Projectile) Backup() ProjectileSnapshot {
	snapshot.Must(p.Body != nil, "combat", "projectile without body")
	return ProjectileSnapshot{Props: snapshot.Capture(p), Body: p.Body.Backup()}
}

func (p *Projectile) Restore(s ProjectileSnapshot) {
	snapshot.Apply(p, s.Props)
	p.Body.Restore(s.Body)
}

type System struct {
	noCopy snapshot.NoCopy

	Weapons []*Weapon     `snap:"-"`
	Active  []*Projectile `snap:"-"`

	NextID int
	Hits   int

	params tuning.Combat
	rng    *rng.System
}

func New(params tuning.Combat, r *rng.System) *System {
	return &System{params: params, rng: r}
}

// Arm turns obj into a turret firing every interval ticks.
func (s *System) Arm(obj *entity.Object, interval int, damage float64) *Weapon {
	w := &Weapon{Obj: obj, Interval: interval, Cooldown: interval, Damage: damage, Spread: 0.1}
	s.Weapons = append(s.Weapons, w)
	return w
}

// Step fires every ready weapon at target, then moves projectiles and
// applies hits. A nil target only advances projectiles in flight.
func (s *System) Step(target *entity.Object) {
	for _, w := range s.Weapons {
		if w.Obj.Dead {
			continue
		}
		w.Cooldown--
		if w.Cooldown > 0 || target == nil || target.Dead {
			continue
		}
		w.Cooldown = w.Interval
		s.fire(w, target)
	}

	live := s.Active[:0]
	for _, p := range s.Active {
		p.Body.Move(p.Body.VX, p.Body.VY)
		p.TTL--
		if target != nil && !target.Dead && p.Body.Touches(target) {
			target.Hurt(p.Damage)
			s.Hits++
			continue
		}
		if p.TTL <= 0 {
			continue
		}
		live = append(live, p)
	}
	clear(s.Active[len(live):])
	s.Active = live
}

func (s *System) fire(w *Weapon, target *entity.Object) {
	angle := math.Atan2(target.Y-w.Obj.Y, target.X-w.Obj.X)
	angle += (s.rng.Float.Float64()*2 - 1) * w.Spread
	s.NextID++
	size := s.params.ProjectileSize
	body := entity.New(fmt.Sprintf("%s/shot-%d", w.Obj.ID, s.NextID), entity.KindProjectile, w.Obj.X, w.Obj.Y, size, size)
	body.VX = math.Cos(angle) * s.params.ProjectileSpeed
	body.VY = math.Sin(angle) * s.params.ProjectileSpeed
	body.Damage = w.Damage
	p := &Projectile{Body: body, Owner: w.Obj.ID, TTL: s.params.ProjectileTTL, Damage: w.Damage}
	w.Last = p
	w.Shots++
	s.Active = append(s.Active, p)
}

type Snapshot struct {
	Props       snapshot.Properties
	Weapons     []*snapshot.Held[*Weapon, snapshot.Properties]
	Projectiles []*snapshot.Held[*Projectile, ProjectileSnapshot]
}

func (s *System) Backup() Snapshot {
	return Snapshot{
		Props:       snapshot.Capture(s),
		Weapons:     snapshot.HoldAll[*Weapon, snapshot.Properties](s.Weapons),
		Projectiles: snapshot.HoldAll[*Projectile, ProjectileSnapshot](s.Active),
	}
}

func (s *System) Restore(snap Snapshot) {
	snapshot.Apply(s, snap.Props)
	s.Weapons = snapshot.RestoreAll(s.Weapons, snap.Weapons)
	s.Active = snapshot.RestoreAll(s.Active, snap.Projectiles)
}

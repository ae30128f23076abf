// Package physics moves the controlled entity and resolves it against solid
// objects. Platformer rules apply gravity and jumping; free-scroll rules move
// in all four directions at constant speed.
package physics

import (
	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/tuning"
)

// Contact is one solid the queried object overlaps, with the minimum push
// vector that would separate them.
type Contact struct {
	Object *entity.Object
	MPV    geom.Point
}

// Collisions splits contacts by the axis of their push vector.
type Collisions struct {
	X []Contact
	Y []Contact
}

func (c Collisions) Empty() bool { return len(c.X) == 0 && len(c.Y) == 0 }

type Engine struct {
	noCopy snapshot.NoCopy

	// Solids are shared with the world's object list; their own state is
	// snapshotted there.
	Solids []*entity.Object

	Frame int

	Params tuning.Physics `snap:"-"`
	Player *entity.Object `snap:"-"`
}

func New(params tuning.Physics, player *entity.Object, solids []*entity.Object) *Engine {
	return &Engine{
		Params: params,
		Player: player,
		Solids: append([]*entity.Object(nil), solids...),
	}
}

func (e *Engine) AddSolid(o *entity.Object) {
	e.Solids = append(e.Solids, o)
}

func (e *Engine) RemoveSolid(o *entity.Object) {
	for i, s := range e.Solids {
		if s == o {
			e.Solids = append(e.Solids[:i], e.Solids[i+1:]...)
			return
		}
	}
}

// Step advances the player one tick under the given effective keys.
func (e *Engine) Step(keys input.Keys) {
	e.Frame++
	p := e.Player
	if p == nil || p.Dead {
		return
	}
	if p.PlatformerRules {
		e.stepPlatformer(p, keys)
	} else {
		e.stepFree(p, keys)
	}
}

func (e *Engine) stepPlatformer(p *entity.Object, keys input.Keys) {
	speed := e.Params.WalkSpeed
	if keys.Has(input.KeyLShift) {
		speed = e.Params.RunSpeed
	}
	p.VX = 0
	if keys.Has(input.KeyA) {
		p.VX -= speed
	}
	if keys.Has(input.KeyD) {
		p.VX += speed
	}
	if keys.Has(input.KeyW) && (!p.InTheAir || p.JumpOverride) {
		p.VY = e.Params.JumpSpeed
		if p.InTheAir {
			p.JumpOverride = false
		}
		p.InTheAir = true
	}
	p.VY -= e.Params.Gravity
	if p.VY < -e.Params.MaxFallSpeed {
		p.VY = -e.Params.MaxFallSpeed
	}

	e.moveAxis(p, p.VX, 0)
	grounded := e.moveAxis(p, 0, p.VY)
	p.InTheAir = !grounded
}

func (e *Engine) stepFree(p *entity.Object, keys input.Keys) {
	speed := e.Params.FreeSpeed
	p.VX, p.VY = 0, 0
	if keys.Has(input.KeyA) {
		p.VX -= speed
	}
	if keys.Has(input.KeyD) {
		p.VX += speed
	}
	if keys.Has(input.KeyW) {
		p.VY += speed
	}
	if keys.Has(input.KeyS) {
		p.VY -= speed
	}
	p.InTheAir = false
	e.moveAxis(p, p.VX, 0)
	e.moveAxis(p, 0, p.VY)
}

// moveAxis moves p by (dx, dy) and pushes it back out of every solid it ends
// up overlapping. It reports whether p came to rest on top of a solid.
func (e *Engine) moveAxis(p *entity.Object, dx, dy float64) bool {
	if dx == 0 && dy == 0 {
		return e.standing(p)
	}
	p.Move(dx, dy)
	landed := false
	for _, s := range e.Solids {
		if s == p || !s.Solid || !p.Touches(s) {
			continue
		}
		box, other := p.Hitbox(), s.Hitbox()
		switch {
		case dx > 0:
			p.Move(other.MinX-box.MaxX, 0)
			p.VX = 0
		case dx < 0:
			p.Move(other.MaxX-box.MinX, 0)
			p.VX = 0
		case dy < 0:
			p.Move(0, other.MaxY-box.MinY)
			p.VY = 0
			landed = true
		case dy > 0:
			p.Move(0, other.MinY-box.MaxY)
			p.VY = 0
		}
	}
	if dy != 0 && !landed {
		return false
	}
	return landed || e.standing(p)
}

func (e *Engine) standing(p *entity.Object) bool {
	probe := p.Hitbox().Translate(0, -0.01)
	for _, s := range e.Solids {
		if s != p && s.Solid && probe.Overlaps(s.Hitbox()) {
			return true
		}
	}
	return false
}

// Carry moves the player by (dx, dy) when it rests on top of a platform
// whose hitbox before the move was top.
func (e *Engine) Carry(top geom.Box, dx, dy float64) {
	p := e.Player
	if p == nil || p.Dead || p.InTheAir {
		return
	}
	if p.Hitbox().Translate(0, -0.01).Overlaps(top) && p.Hitbox().MinY >= top.MaxY-0.01 {
		p.Move(dx, dy)
	}
}

// Collisions reports every solid obj currently overlaps. After a normal step
// the player rests against solids without overlapping them, so any contact
// here means it was pushed or crushed into something.
func (e *Engine) Collisions(obj *entity.Object) Collisions {
	var out Collisions
	if obj == nil {
		return out
	}
	for _, s := range e.Solids {
		if s == obj || !s.Solid {
			continue
		}
		mpv, ok := obj.Hitbox().PushOut(s.Hitbox())
		if !ok {
			continue
		}
		c := Contact{Object: s, MPV: mpv}
		if mpv.X != 0 {
			out.X = append(out.X, c)
		} else {
			out.Y = append(out.Y, c)
		}
	}
	return out
}

func (e *Engine) Backup() snapshot.Properties {
	for _, s := range e.Solids {
		snapshot.Must(s != nil, "physics", "nil solid")
	}
	return snapshot.Capture(e)
}

func (e *Engine) Restore(p snapshot.Properties) { snapshot.Apply(e, p) }

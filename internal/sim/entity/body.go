package entity

import "timewarp.dev/internal/sim/geom"

// Body is a read-only summary of an object's physical state, cheap enough to
// keep alongside every snapshot.
type Body struct {
	X, Y       float64
	VX, VY     float64
	Outline    geom.Outline
	Health     float64
	Dead       bool
	InTheAir   bool
	Jump       bool
	Platformer bool
}

func (b Body) Pos() geom.Point { return geom.Point{X: b.X, Y: b.Y} }

// CanJump reports whether a jump would start on the next tick.
func (b Body) CanJump() bool { return !b.InTheAir || b.Jump }

// Body summarises o with its outline in world coordinates.
func (o *Object) Body() Body {
	return Body{
		X: o.X, Y: o.Y, VX: o.VX, VY: o.VY,
		Outline:    o.AbsOutline(),
		Health:     o.Health,
		Dead:       o.Dead,
		InTheAir:   o.InTheAir,
		Jump:       o.JumpOverride,
		Platformer: o.PlatformerRules,
	}
}

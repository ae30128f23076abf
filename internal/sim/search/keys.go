package search

import (
	"math"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/tuning"
)

// Candidate inputs per ruleset. Run is held on top of every one.
var (
	platformerInputs = []input.Keys{
		input.Of(input.KeyD),
		input.Of(input.KeyA),
		input.Of(input.KeyA, input.KeyW),
		input.Of(input.KeyD, input.KeyW),
		input.Of(input.KeyW),
		0,
	}
	groundedInputs = []input.Keys{
		input.Of(input.KeyD),
		input.Of(input.KeyA),
		0,
	}
	scrollerInputs = []input.Keys{
		input.Of(input.KeyA),
		input.Of(input.KeyW),
		input.Of(input.KeyD),
		input.Of(input.KeyS),
		input.Of(input.KeyA, input.KeyW),
		input.Of(input.KeyA, input.KeyS),
		input.Of(input.KeyD, input.KeyW),
		input.Of(input.KeyD, input.KeyS),
		0,
	}
)

// Inputs lists the key sets worth trying from a state of b.
func Inputs(b entity.Body) []input.Keys {
	switch {
	case !b.Platformer:
		return scrollerInputs
	case b.CanJump():
		return platformerInputs
	default:
		return groundedInputs
	}
}

// Key is a quantized search state. Two states with the same key are treated
// as the same place.
type Key struct {
	X, Y   int64
	VX, VY int64
}

// Granularity is the bucket size for a state at the given distance from the
// target: the configured base close by, doubling every CoarsenDistance
// further out up to MaxGranularity.
func Granularity(cfg tuning.Search, dist float64) float64 {
	g := cfg.Granularity
	if cfg.CoarsenDistance > 0 {
		for d := dist; d >= cfg.CoarsenDistance && g*2 <= cfg.MaxGranularity; d -= cfg.CoarsenDistance {
			g *= 2
		}
	}
	return g
}

// Quantize buckets b's position at a granularity chosen by its distance to
// target. Velocity is rounded to whole units.
func Quantize(cfg tuning.Search, b entity.Body, target geom.Point) Key {
	g := Granularity(cfg, geom.Dist(b.Pos(), target))
	return Key{
		X:  int64(math.Floor(b.X / g)),
		Y:  int64(math.Floor(b.Y / g)),
		VX: int64(math.Round(b.VX)),
		VY: int64(math.Round(b.VY)),
	}
}

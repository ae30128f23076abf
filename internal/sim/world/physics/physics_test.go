package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/tuning"
)

func newScene() (*Engine, *entity.Object, *entity.Object) {
	p := entity.New("p", entity.KindPlayer, 0, 0, 10, 10)
	p.PlatformerRules = true
	p.Health, p.MaxHealth = 100, 100
	ground := entity.New("ground", entity.KindWall, 0, -15, 400, 20)
	ground.Solid = true
	return New(tuning.Default().Physics, p, []*entity.Object{ground}), p, ground
}

func TestStep_StandsOnGround(t *testing.T) {
	e, p, _ := newScene()
	for i := 0; i < 10; i++ {
		e.Step(0)
	}
	assert.Equal(t, 0.0, p.Y)
	assert.False(t, p.InTheAir)
	assert.True(t, e.Collisions(p).Empty())
}

func TestStep_RunAndWalk(t *testing.T) {
	e, p, _ := newScene()
	e.Step(input.Of(input.KeyD))
	assert.InDelta(t, 2, p.X, 1e-9)
	e.Step(input.Of(input.KeyD, input.KeyLShift))
	assert.InDelta(t, 6, p.X, 1e-9)
	e.Step(input.Of(input.KeyA, input.KeyD))
	assert.InDelta(t, 6, p.X, 1e-9)
}

func TestStep_JumpOnlyFromGround(t *testing.T) {
	e, p, _ := newScene()
	e.Step(input.Of(input.KeyW))
	require.True(t, p.InTheAir)
	y1 := p.Y
	assert.Greater(t, y1, 0.0)

	vy := p.VY
	e.Step(input.Of(input.KeyW))
	assert.Less(t, p.VY, vy, "no second jump in the air")

	for i := 0; i < 100 && p.InTheAir; i++ {
		e.Step(0)
	}
	assert.False(t, p.InTheAir)
	assert.InDelta(t, 0, p.Y, 1e-9)
}

func TestStep_JumpOverrideAllowsOneAirJump(t *testing.T) {
	e, p, _ := newScene()
	e.Step(input.Of(input.KeyW))
	p.JumpOverride = true
	e.Step(input.Of(input.KeyW))
	assert.Equal(t, tuning.Default().Physics.JumpSpeed-tuning.Default().Physics.Gravity, p.VY)
	assert.False(t, p.JumpOverride)
}

func TestStep_WallBlocksAndCollisionsReportOverlap(t *testing.T) {
	e, p, _ := newScene()
	wall := entity.New("wall", entity.KindWall, 12, 10, 4, 40)
	wall.Solid = true
	e.AddSolid(wall)

	e.Step(input.Of(input.KeyD, input.KeyLShift))
	e.Step(input.Of(input.KeyD, input.KeyLShift))
	assert.InDelta(t, 5, p.X, 1e-9, "stopped flush against the wall")
	assert.True(t, e.Collisions(p).Empty())

	wall.Move(-2, 0)
	c := e.Collisions(p)
	require.Len(t, c.X, 1)
	assert.Same(t, wall, c.X[0].Object)
	assert.InDelta(t, -2, c.X[0].MPV.X, 1e-9)
}

func TestCollisions_SunkIntoFloorIsPositiveY(t *testing.T) {
	e, p, _ := newScene()
	p.SetPos(0, -1)
	c := e.Collisions(p)
	require.Len(t, c.Y, 1)
	assert.Greater(t, c.Y[0].MPV.Y, 0.0)
}

func TestStep_FreeScroll(t *testing.T) {
	e, p, _ := newScene()
	p.PlatformerRules = false
	p.SetPos(0, 50)
	e.Step(input.Of(input.KeyW, input.KeyA))
	assert.InDelta(t, -3, p.X, 1e-9)
	assert.InDelta(t, 53, p.Y, 1e-9)
}

func TestCarry_MovesPlayerStandingOnPlatform(t *testing.T) {
	e, p, ground := newScene()
	e.Step(0)
	e.Carry(ground.Hitbox(), 3, 0)
	assert.InDelta(t, 3, p.X, 1e-9)

	p.InTheAir = true
	e.Carry(ground.Hitbox(), 3, 0)
	assert.InDelta(t, 3, p.X, 1e-9)
}

func TestEngine_BackupRestore(t *testing.T) {
	e, p, ground := newScene()
	snap := e.Backup()
	extra := entity.New("x", entity.KindWall, 100, 0, 1, 1)
	e.AddSolid(extra)
	e.Step(0)
	e.Restore(snap)

	assert.Equal(t, 0, e.Frame)
	require.Len(t, e.Solids, 1)
	assert.Same(t, ground, e.Solids[0])
	assert.Same(t, p, e.Player, "back reference is not part of the snapshot")
}

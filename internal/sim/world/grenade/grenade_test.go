package grenade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/tuning"
)

func TestStep_ExplodesAfterFuse(t *testing.T) {
	params := tuning.Default().Grenade
	s := New(params)
	thrower := entity.New("p", entity.KindPlayer, 0, 0, 10, 10)
	near := entity.New("near", entity.KindEnemy, 20, 0, 10, 10)
	near.Health = 100
	far := entity.New("far", entity.KindEnemy, 500, 0, 10, 10)
	far.Health = 100

	s.Throw(thrower, 1, 0)
	var ex []Explosion
	for i := 0; i < params.FuseTicks; i++ {
		require.Empty(t, ex)
		ex = s.Step([]*entity.Object{near, far})
	}
	require.Len(t, ex, 1)
	assert.Equal(t, []string{"near"}, ex[0].Hit)
	assert.Equal(t, 100-params.Damage, near.Health)
	assert.Equal(t, 100.0, far.Health)
	assert.Empty(t, s.Grenades)
	assert.Equal(t, 1, s.Explosions)
}

func TestBackupRestore(t *testing.T) {
	s := New(tuning.Default().Grenade)
	thrower := entity.New("p", entity.KindPlayer, 0, 0, 10, 10)
	g := s.Throw(thrower, 3, 1)
	s.Step(nil)
	snap := s.Backup()
	x, fuse := g.Body.X, g.Fuse

	for i := 0; i < 200; i++ {
		s.Step(nil)
	}
	require.Empty(t, s.Grenades)

	s.Restore(snap)
	require.Len(t, s.Grenades, 1)
	assert.Same(t, g, s.Grenades[0])
	assert.Equal(t, x, g.Body.X)
	assert.Equal(t, fuse, g.Fuse)
	assert.Equal(t, 1, s.NextID)
	assert.Zero(t, s.Explosions)
}

func TestBackup_NegativeFusePanics(t *testing.T) {
	s := New(tuning.Default().Grenade)
	g := s.Throw(entity.New("p", entity.KindPlayer, 0, 0, 10, 10), 0, 0)
	g.Fuse = -1
	assert.PanicsWithError(t, "grenade: snapshot invariant violated: grenade grenade-1 has negative fuse -1", func() { s.Backup() })
}

package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/rng"
)

func newCombat() (*System, *Weapon, *entity.Object) {
	s := New(tuning.Default().Combat, rng.New(1))
	turret := entity.New("turret", entity.KindWeapon, 60, 0, 8, 8)
	w := s.Arm(turret, 3, 4)
	target := entity.New("p", entity.KindPlayer, 0, 0, 10, 10)
	target.Health = 20
	return s, w, target
}

func TestStep_FiresOnCooldown(t *testing.T) {
	s, w, target := newCombat()
	s.Step(target)
	s.Step(target)
	assert.Empty(t, s.Active)
	s.Step(target)
	require.Len(t, s.Active, 1)
	assert.Same(t, s.Active[0], w.Last)
	assert.Equal(t, "turret", w.Last.Owner)
	assert.Less(t, w.Last.Body.VX, 0.0, "aimed at the target on the left")
}

func TestStep_ProjectileHitsTarget(t *testing.T) {
	s, _, target := newCombat()
	for i := 0; i < 40 && s.Hits == 0; i++ {
		s.Step(target)
	}
	require.Positive(t, s.Hits)
	assert.Less(t, target.Health, 20.0)
}

func TestBackupRestore_KeepsProjectileIdentity(t *testing.T) {
	s, w, target := newCombat()
	for i := 0; i < 3; i++ {
		s.Step(target)
	}
	shot := w.Last
	x := shot.Body.X
	snap := s.Backup()

	for i := 0; i < 40; i++ {
		s.Step(target)
	}
	require.NotSame(t, shot, w.Last)

	s.Restore(snap)
	require.Len(t, s.Active, 1)
	assert.Same(t, shot, s.Active[0], "projectile state is replayed onto the same instance")
	assert.Same(t, shot, w.Last)
	assert.Equal(t, x, shot.Body.X)
	assert.Equal(t, 3, w.Cooldown)
}

func TestBackupRestore_DeterministicReplay(t *testing.T) {
	s, _, target := newCombat()
	r := s.rng
	s.Step(target)
	snap, rsnap := s.Backup(), r.Backup()
	hp := target.Health

	run := func() []float64 {
		var xs []float64
		for i := 0; i < 10; i++ {
			s.Step(target)
			for _, p := range s.Active {
				xs = append(xs, p.Body.X, p.Body.Y)
			}
		}
		return xs
	}
	first := run()
	s.Restore(snap)
	r.Restore(rsnap)
	target.Health, target.Dead = hp, false
	assert.Equal(t, first, run())
}

func TestWeapon_BackupRejectsForeignProjectile(t *testing.T) {
	s, w, target := newCombat()
	other := s.Arm(entity.New("other", entity.KindWeapon, -60, 0, 8, 8), 1, 1)
	s.Step(target)
	w.Last = other.Last
	assert.PanicsWithError(t, "combat: snapshot invariant violated: weapon turret holds projectile other/shot-1 fired by other", func() {
		w.Backup()
	})
}

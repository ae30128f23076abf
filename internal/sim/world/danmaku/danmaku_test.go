package danmaku

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/rng"
)

func newFight() (*System, *entity.Object, *entity.Object, *rng.System) {
	boss := entity.New("boss", entity.KindBoss, 0, 100, 30, 30)
	boss.Health, boss.MaxHealth = 10, 10
	player := entity.New("p", entity.KindPlayer, 0, 0, 10, 10)
	player.Health = 100
	r := rng.New(5)
	return New(tuning.Default().Danmaku, r, boss), boss, player, r
}

func TestStep_BossFiresRings(t *testing.T) {
	s, _, player, _ := newFight()
	for i := 0; i < ringEvery-1; i++ {
		s.Step(player, false)
	}
	assert.Empty(t, s.Bullets)
	s.Step(player, false)
	assert.Len(t, s.Bullets, ringSize)
	assert.Equal(t, 10, s.GUI["boss_hp"])
}

func TestStep_PlayerBulletsHurtBoss(t *testing.T) {
	s, boss, player, _ := newFight()
	s.Step(player, true)
	require.Len(t, s.PlayerBullets, 1)
	for i := 0; i < 30; i++ {
		s.Step(player, false)
	}
	assert.Equal(t, 1, s.GUI["boss_hits"])
	assert.Equal(t, 8.0, boss.Health)
	assert.Empty(t, s.PlayerBullets)
}

func TestBackupRestore_ReplaysBulletsAndGUI(t *testing.T) {
	s, boss, player, r := newFight()
	for i := 0; i < ringEvery; i++ {
		s.Step(player, false)
	}
	first := s.Bullets[0]
	snap, rs, bs := s.Backup(), r.Backup(), boss.Backup()
	pos := func() []float64 {
		var out []float64
		for _, b := range s.Bullets {
			out = append(out, b.Body.X, b.Body.Y)
		}
		return out
	}
	before := pos()

	for i := 0; i < 2*ringEvery; i++ {
		s.Step(player, i%7 == 0)
	}
	after := pos()
	gui := maps.Clone(s.GUI)
	s.GUI["shots"] = 99

	s.Restore(snap)
	r.Restore(rs)
	boss.Restore(bs)
	assert.Same(t, first, s.Bullets[0])
	assert.Equal(t, before, pos())
	assert.Zero(t, s.GUI["shots"])
	assert.Zero(t, snap.GUI["shots"], "snapshot map is not aliased")
	assert.Equal(t, map[string]int{"boss_hp": 10}, s.GUI)

	for i := 0; i < 2*ringEvery; i++ {
		s.Step(player, i%7 == 0)
	}
	assert.Equal(t, after, pos())
	assert.Equal(t, gui, s.GUI)
}

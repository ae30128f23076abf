package tilemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
)

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer([]string{
		"....",
		"#..^",
		"####",
	}, 10, geom.Point{X: -20, Y: -30})
	require.NoError(t, err)
	assert.Equal(t, 4, l.Width())
	assert.Equal(t, 3, l.Height())
	assert.Equal(t, byte(TileSolid), l.At(0, 0))
	assert.Equal(t, byte(TileSpike), l.At(3, 1))
	assert.Equal(t, byte(TileEmpty), l.At(9, 9))
	assert.Equal(t, byte(TileSpike), l.TileAt(geom.Point{X: 15, Y: -15}))
	assert.Equal(t, byte(TileEmpty), l.TileAt(geom.Point{X: -25, Y: 0}))

	objs := l.Objects()
	require.Len(t, objs, 3)
	floor := objs[0]
	assert.Equal(t, "tile-0-0", floor.ID)
	assert.True(t, floor.Solid)
	assert.Equal(t, geom.Box{MinX: -20, MinY: -30, MaxX: 20, MaxY: -20}, floor.Hitbox())
	assert.Equal(t, entity.KindSpike, objs[2].Kind)
}

func TestParseLayer_Errors(t *testing.T) {
	_, err := ParseLayer(nil, 10, geom.Point{})
	assert.Error(t, err)
	_, err = ParseLayer([]string{"..", "."}, 10, geom.Point{})
	assert.ErrorContains(t, err, "width")
	_, err = ParseLayer([]string{".x"}, 10, geom.Point{})
	assert.ErrorContains(t, err, "unknown tile")
}

type carrier struct{ moved []geom.Point }

func (c *carrier) Carry(top geom.Box, dx, dy float64) {
	c.moved = append(c.moved, geom.Point{X: dx, Y: dy})
}

func TestStep_MovesPlatformsAndCarries(t *testing.T) {
	m := New(nil)
	p := entity.New("plat", entity.KindPlatform, 0, 0, 30, 4)
	m.AddPlatform(p, geom.Outline{{X: 10, Y: 0}, {X: 0, Y: 0}}, 2, 0)
	c := &carrier{}
	m.Step(c)
	m.Step(c)
	assert.Equal(t, 4.0, p.X)
	assert.Equal(t, []geom.Point{{X: 2}, {X: 2}}, c.moved)
	assert.True(t, p.Solid)
}

func TestBackupRestore_SharesLayerAndKeepsPlatforms(t *testing.T) {
	l, err := ParseLayer([]string{"##"}, 8, geom.Point{})
	require.NoError(t, err)
	m := New(l)
	p := entity.New("plat", entity.KindPlatform, 0, 0, 30, 4)
	m.AddPlatform(p, geom.Outline{{X: 10, Y: 0}, {X: 0, Y: 0}}, 2, 0)
	m.Step(nil)
	snap := m.Backup()

	for i := 0; i < 7; i++ {
		m.Step(nil)
	}
	m.Platforms = nil

	m.Restore(snap)
	require.Len(t, m.Platforms, 1)
	assert.Same(t, p, m.Platforms[0])
	assert.Same(t, l, m.Layer)
	assert.Equal(t, 2.0, p.X)
	assert.Equal(t, 0, p.Walk.Index)
	assert.Equal(t, 1, m.Frame)
}

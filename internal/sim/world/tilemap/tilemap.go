// Package tilemap holds the static tile layer of a map and its moving
// platforms. The layer never changes after loading and is shared by every
// snapshot; only the platforms carry state.
package tilemap

import (
	"fmt"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/snapshot"
)

const (
	TileEmpty = '.'
	TileSolid = '#'
	TileSpike = '^'
)

// Layer is an immutable grid of tiles. Row 0 is the bottom row; the bottom
// left corner of tile (0, 0) sits at Origin.
type Layer struct {
	width    int
	height   int
	tileSize float64
	origin   geom.Point
	tiles    []byte
}

// ParseLayer builds a layer from rows listed top to bottom, the way they are
// written in map files.
func ParseLayer(rows []string, tileSize float64, origin geom.Point) (*Layer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tilemap: empty layer")
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("tilemap: tile size must be positive")
	}
	w := len(rows[0])
	l := &Layer{width: w, height: len(rows), tileSize: tileSize, origin: origin, tiles: make([]byte, 0, w*len(rows))}
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) != w {
			return nil, fmt.Errorf("tilemap: row %d has width %d, want %d", i, len(row), w)
		}
		for j := 0; j < w; j++ {
			switch row[j] {
			case TileEmpty, TileSolid, TileSpike:
			default:
				return nil, fmt.Errorf("tilemap: row %d col %d: unknown tile %q", i, j, row[j])
			}
		}
		l.tiles = append(l.tiles, row...)
	}
	return l, nil
}

func (l *Layer) Width() int         { return l.width }
func (l *Layer) Height() int        { return l.height }
func (l *Layer) TileSize() float64  { return l.tileSize }
func (l *Layer) Origin() geom.Point { return l.origin }

// At returns the tile at column c, row r (row 0 at the bottom).
func (l *Layer) At(c, r int) byte {
	if c < 0 || r < 0 || c >= l.width || r >= l.height {
		return TileEmpty
	}
	return l.tiles[r*l.width+c]
}

// TileAt returns the tile under world point p.
func (l *Layer) TileAt(p geom.Point) byte {
	c := int((p.X - l.origin.X) / l.tileSize)
	r := int((p.Y - l.origin.Y) / l.tileSize)
	if p.X < l.origin.X || p.Y < l.origin.Y {
		return TileEmpty
	}
	return l.At(c, r)
}

// Objects turns the layer into static world objects. Horizontal runs of
// solid tiles become one wall each; spikes are single hazard tiles.
func (l *Layer) Objects() []*entity.Object {
	var out []*entity.Object
	ts := l.tileSize
	for r := 0; r < l.height; r++ {
		for c := 0; c < l.width; {
			t := l.At(c, r)
			switch t {
			case TileSolid:
				end := c
				for end < l.width && l.At(end, r) == TileSolid {
					end++
				}
				n := float64(end - c)
				o := entity.New(fmt.Sprintf("tile-%d-%d", r, c), entity.KindWall,
					l.origin.X+(float64(c)+n/2)*ts, l.origin.Y+(float64(r)+0.5)*ts, n*ts, ts)
				o.Solid = true
				out = append(out, o)
				c = end
			case TileSpike:
				o := entity.New(fmt.Sprintf("spike-%d-%d", r, c), entity.KindSpike,
					l.origin.X+(float64(c)+0.5)*ts, l.origin.Y+(float64(r)+0.25)*ts, ts, ts/2)
				out = append(out, o)
				c++
			default:
				c++
			}
		}
	}
	return out
}

// Carrier moves riders along with a platform.
type Carrier interface {
	Carry(top geom.Box, dx, dy float64)
}

type TileMap struct {
	noCopy snapshot.NoCopy

	Layer     *Layer           `snap:"-"`
	Platforms []*entity.Object `snap:"-"`

	Frame int
}

func New(layer *Layer) *TileMap {
	return &TileMap{Layer: layer}
}

// AddPlatform registers a solid platform that patrols along points.
func (m *TileMap) AddPlatform(p *entity.Object, points geom.Outline, speed float64, pause int) {
	p.Solid = true
	entity.AttachWalk(p, points, speed, pause)
	m.Platforms = append(m.Platforms, p)
}

// Step moves every platform one tick, carrying whatever rides on it.
func (m *TileMap) Step(c Carrier) {
	m.Frame++
	for _, p := range m.Platforms {
		before := p.Hitbox()
		dx, dy := p.Walk.Step()
		if c != nil && (dx != 0 || dy != 0) {
			c.Carry(before, dx, dy)
		}
	}
}

type Snapshot struct {
	Props     snapshot.Properties
	Platforms []*snapshot.Held[*entity.Object, entity.Snapshot]
}

func (m *TileMap) Backup() Snapshot {
	for _, p := range m.Platforms {
		snapshot.Must(p.Walk != nil, "tilemap", "platform %s has no route", p.ID)
	}
	return Snapshot{
		Props:     snapshot.Capture(m),
		Platforms: snapshot.HoldAll[*entity.Object, entity.Snapshot](m.Platforms),
	}
}

func (m *TileMap) Restore(s Snapshot) {
	snapshot.Apply(m, s.Props)
	m.Platforms = snapshot.RestoreAll(m.Platforms, s.Platforms)
}

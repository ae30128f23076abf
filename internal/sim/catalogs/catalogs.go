package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"timewarp.dev/internal/sim/geom"
)

var ErrInvalidMap = errors.New("invalid map")

// Catalog is every map definition found in a config directory.
type Catalog struct {
	ByID   map[string]MapDef
	IDs    []string
	Start  string
	Digest string
}

type MapDef struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Start     bool          `yaml:"start"`
	Seed      int64         `yaml:"seed"`
	TileSize  float64       `yaml:"tile_size"`
	Origin    geom.Point    `yaml:"origin"`
	Tiles     []string      `yaml:"tiles"`
	Player    PlayerDef     `yaml:"player"`
	Objects   []ObjectDef   `yaml:"objects"`
	Platforms []PlatformDef `yaml:"platforms"`
	Logic     []NodeDef     `yaml:"logic"`
	Countdown int           `yaml:"countdown"`
}

type PlayerDef struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	W          float64 `yaml:"w"`
	H          float64 `yaml:"h"`
	Health     float64 `yaml:"health"`
	Platformer bool    `yaml:"platformer"`
	Inverted   bool    `yaml:"inverted"`
}

type ObjectDef struct {
	ID     string            `yaml:"id"`
	Kind   string            `yaml:"kind"`
	X      float64           `yaml:"x"`
	Y      float64           `yaml:"y"`
	W      float64           `yaml:"w"`
	H      float64           `yaml:"h"`
	Solid  bool              `yaml:"solid"`
	Damage float64           `yaml:"damage"`
	Health float64           `yaml:"health"`
	Props  map[string]string `yaml:"props"`
	Walk   *WalkDef          `yaml:"walk"`
	Weapon *WeaponDef        `yaml:"weapon"`
}

type WalkDef struct {
	Points []geom.Point `yaml:"points"`
	Speed  float64      `yaml:"speed"`
	Pause  int          `yaml:"pause"`
}

type WeaponDef struct {
	Interval int     `yaml:"interval"`
	Damage   float64 `yaml:"damage"`
}

type PlatformDef struct {
	ID   string  `yaml:"id"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
	Walk WalkDef `yaml:"walk"`
}

type NodeDef struct {
	ID     string   `yaml:"id"`
	Op     string   `yaml:"op"`
	Inputs []string `yaml:"inputs"`
	Period int      `yaml:"period"`
	Object string   `yaml:"object"`
}

var objectKinds = map[string]struct{}{
	"enemy": {}, "boss": {}, "wall": {}, "spike": {}, "portal": {}, "flag": {},
	"item": {}, "door": {}, "sign": {}, "plate": {}, "weapon": {},
}

// Load reads every *.yaml file in dir, sorted by name. The digest covers the
// raw bytes so two runs can tell whether they played the same maps.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var defs []MapDef
	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var m MapDef
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("map %s: %w", filepath.Base(p), err)
		}
		defs = append(defs, m)
	}
	c, err := New(defs...)
	if err != nil {
		return nil, err
	}
	c.Digest = sha256Hex(concat.Bytes())
	return c, nil
}

// New builds a catalog from in-memory definitions.
func New(defs ...MapDef) (*Catalog, error) {
	c := &Catalog{ByID: map[string]MapDef{}}
	for _, m := range defs {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.ByID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate map id %q", ErrInvalidMap, m.ID)
		}
		c.ByID[m.ID] = m
		c.IDs = append(c.IDs, m.ID)
		if m.Start {
			if c.Start != "" {
				return nil, fmt.Errorf("%w: maps %q and %q are both marked start", ErrInvalidMap, c.Start, m.ID)
			}
			c.Start = m.ID
		}
	}
	if len(c.IDs) == 0 {
		return nil, fmt.Errorf("%w: no maps", ErrInvalidMap)
	}
	sort.Strings(c.IDs)
	if c.Start == "" {
		c.Start = c.IDs[0]
	}
	for _, id := range c.IDs {
		for _, o := range c.ByID[id].Objects {
			if o.Kind != "portal" {
				continue
			}
			if _, ok := c.ByID[o.Props["target"]]; !ok {
				return nil, fmt.Errorf("%w: map %q portal %q targets unknown map %q", ErrInvalidMap, id, o.ID, o.Props["target"])
			}
		}
	}
	if len(defs) > 0 {
		raw, _ := yaml.Marshal(defs)
		c.Digest = sha256Hex(raw)
	}
	return c, nil
}

func (c *Catalog) Map(id string) (MapDef, bool) {
	m, ok := c.ByID[id]
	return m, ok
}

func (m MapDef) validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: map %q: %s", ErrInvalidMap, m.ID, fmt.Sprintf(format, args...))
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMap)
	}
	if len(m.Tiles) > 0 && m.TileSize <= 0 {
		return bad("tile_size must be positive")
	}
	if m.Player.W <= 0 || m.Player.H <= 0 {
		return bad("player needs a positive size")
	}
	if m.Player.Health <= 0 {
		return bad("player needs health")
	}
	ids := map[string]struct{}{}
	for _, o := range m.Objects {
		if o.ID == "" {
			return bad("object without id")
		}
		if _, dup := ids[o.ID]; dup {
			return bad("duplicate object id %q", o.ID)
		}
		ids[o.ID] = struct{}{}
		if _, ok := objectKinds[o.Kind]; !ok {
			return bad("object %q has unknown kind %q", o.ID, o.Kind)
		}
		if o.W <= 0 || o.H <= 0 {
			return bad("object %q needs a positive size", o.ID)
		}
		if o.Weapon != nil && o.Weapon.Interval <= 0 {
			return bad("weapon %q needs a positive interval", o.ID)
		}
	}
	for _, p := range m.Platforms {
		if _, dup := ids[p.ID]; dup || p.ID == "" {
			return bad("platform id %q missing or reused", p.ID)
		}
		ids[p.ID] = struct{}{}
		if len(p.Walk.Points) == 0 {
			return bad("platform %q has no route", p.ID)
		}
	}
	for _, n := range m.Logic {
		if n.Object == "" {
			continue
		}
		if _, ok := ids[n.Object]; !ok {
			return bad("logic node %q refers to unknown object %q", n.ID, n.Object)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

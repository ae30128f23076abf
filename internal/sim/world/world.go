// Package world is the simulated game: a set of maps, the entities on the
// current one and the subsystems that move them, advanced one Tick at a
// time. Everything mutable is reachable from World and captured by Backup.
package world

import (
	"errors"
	"fmt"
	"log/slog"

	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/catalogs"
	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/combat"
	"timewarp.dev/internal/sim/world/danmaku"
	"timewarp.dev/internal/sim/world/grenade"
	"timewarp.dev/internal/sim/world/logic"
	"timewarp.dev/internal/sim/world/physics"
	"timewarp.dev/internal/sim/world/rng"
	"timewarp.dev/internal/sim/world/textbox"
	"timewarp.dev/internal/sim/world/tilemap"
)

var (
	ErrUnknownMap = errors.New("unknown map")
	ErrNoPlayer   = errors.New("no player")
)

// Net delivers the per-tick game info to the game server.
type Net interface {
	Send(msg protocol.GameInfoMsg) error
}

type Config struct {
	Tuning tuning.Tuning
	Maps   *catalogs.Catalog
	// Net receives game info while running in real time. Without it the
	// world only captures what it would have sent.
	Net    Net
	Logger *slog.Logger
	// Seed overrides the start map's seed when non-zero.
	Seed int64
}

type Scene string

const (
	ScenePlay      Scene = "play"
	SceneSwitching Scene = "switching"
)

// MapSwitch describes a transition in progress. It is replaced, never
// mutated, so snapshots can share it.
type MapSwitch struct {
	From      string
	Target    string
	Remaining int
}

// World is single-threaded: every method must be called from the goroutine
// driving it.
type World struct {
	noCopy snapshot.NoCopy

	cfg Config
	log *slog.Logger

	// Driver flags. They describe how the world is being run rather than
	// its state, so they are not part of snapshots.
	realTime   bool
	simulating bool

	tick           uint64
	mapID          string
	scene          Scene
	stateHash      string
	won            bool
	lost           bool
	cheating       bool
	portalCooldown int

	unlocked map[string]struct{}
	raw      input.Keys
	prev     input.Keys
	pressed  input.Keys
	answer   string

	objects []*entity.Object
	static  []*entity.Object
	items   map[string]int

	mapSwitch *MapSwitch
	textbox   *textbox.Textbox
	player    *entity.Object
	boss      *entity.Object
	lastSent  *protocol.GameInfoMsg

	rng     *rng.System
	physics *physics.Engine
	combat  *combat.System
	logic   *logic.Engine
	danmaku *danmaku.System
	grenade *grenade.System
	tiles   *tilemap.TileMap
}

// New builds a world on the catalog's start map.
func New(cfg Config) (*World, error) {
	if cfg.Maps == nil {
		return nil, fmt.Errorf("world: %w: no map catalog", catalogs.ErrInvalidMap)
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	start, _ := cfg.Maps.Map(cfg.Maps.Start)
	seed := start.Seed
	if cfg.Seed != 0 {
		seed = cfg.Seed
	}
	w := &World{
		cfg:      cfg,
		log:      log.With("component", "world"),
		rng:      rng.New(seed),
		items:    map[string]int{},
		unlocked: map[string]struct{}{},
	}
	if err := w.load(cfg.Maps.Start); err != nil {
		return nil, err
	}
	w.stateHash = w.digest()
	return w, nil
}

func (w *World) CurrentTick() uint64 { return w.tick }
func (w *World) Map() string         { return w.mapID }
func (w *World) Scene() Scene        { return w.scene }
func (w *World) StateHash() string   { return w.stateHash }
func (w *World) Won() bool           { return w.won }
func (w *World) Lost() bool          { return w.lost }
func (w *World) Seed() int64         { return w.rng.Seed() }

// CheatingDetected reports whether the player ever moved further in one
// tick than the physics allows.
func (w *World) CheatingDetected() bool { return w.cheating }

// Switching reports whether a map transition is in progress.
func (w *World) Switching() bool { return w.mapSwitch != nil }

// Player returns the controlled entity, or nil when the map has none.
func (w *World) Player() *entity.Object { return w.player }

func (w *World) Boss() *entity.Object { return w.boss }

// Object looks up a dynamic object on the current map.
func (w *World) Object(id string) *entity.Object {
	for _, o := range w.objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (w *World) Objects() []*entity.Object { return w.objects }

func (w *World) Items() map[string]int { return w.items }

func (w *World) Unlocked(door string) bool {
	_, ok := w.unlocked[door]
	return ok
}

func (w *World) Textbox() *textbox.Textbox { return w.textbox }

// TypeText appends text to the open dialog's input prompt.
func (w *World) TypeText(s string) {
	if w.textbox != nil {
		w.textbox.Type(s)
	}
}

func (w *World) RealTime() bool          { return w.realTime }
func (w *World) SetRealTime(on bool)     { w.realTime = on }
func (w *World) Simulating() bool        { return w.simulating }
func (w *World) SetSimulating(on bool)   { w.simulating = on }
func (w *World) PressedKeys() input.Keys { return w.raw }

// SetPressedKeys sets the raw keys held for the next tick.
func (w *World) SetPressedKeys(keys input.Keys) { w.raw = keys }

// LastSent is the game info captured by the most recent tick that did not
// go out on the network.
func (w *World) LastSent() (protocol.GameInfoMsg, bool) {
	if w.lastSent == nil {
		return protocol.GameInfoMsg{}, false
	}
	return cloneInfo(*w.lastSent), true
}

// Controlled summarises the player for the planner.
func (w *World) Controlled() (entity.Body, bool) {
	if w.player == nil {
		return entity.Body{}, false
	}
	return w.player.Body(), true
}

// ControlledIn returns the player summary recorded in s.
func (w *World) ControlledIn(s *Snapshot) (entity.Body, bool) { return s.Player() }

// Collisions reports the solids the player currently overlaps.
func (w *World) Collisions() physics.Collisions {
	if w.player == nil {
		return physics.Collisions{}
	}
	return w.physics.Collisions(w.player)
}

func cloneInfo(m protocol.GameInfoMsg) protocol.GameInfoMsg {
	m.Keys = append([]string(nil), m.Keys...)
	return m
}

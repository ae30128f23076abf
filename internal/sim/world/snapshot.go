package world

import (
	"slices"

	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/world/combat"
	"timewarp.dev/internal/sim/world/danmaku"
	"timewarp.dev/internal/sim/world/grenade"
	"timewarp.dev/internal/sim/world/logic"
	"timewarp.dev/internal/sim/world/physics"
	"timewarp.dev/internal/sim/world/rng"
	"timewarp.dev/internal/sim/world/textbox"
	"timewarp.dev/internal/sim/world/tilemap"
)

// Snapshot is the complete mutable state of a World at a tick boundary. It
// is created by Backup and never modified afterwards; every accessor
// returns a copy.
type Snapshot struct {
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

	objects []*snapshot.Held[*entity.Object, entity.Snapshot]
	static  []*entity.Object
	items   map[string]int

	mapSwitch *MapSwitch
	textbox   *textbox.Textbox
	player    *entity.Object
	boss      *entity.Object
	lastSent  *protocol.GameInfoMsg
	body      *entity.Body

	rng     *snapshot.Held[*rng.System, rng.Snapshot]
	physics *snapshot.Held[*physics.Engine, snapshot.Properties]
	combat  *snapshot.Held[*combat.System, combat.Snapshot]
	logic   *snapshot.Held[*logic.Engine, logic.Snapshot]
	danmaku *snapshot.Held[*danmaku.System, danmaku.Snapshot]
	grenade *snapshot.Held[*grenade.System, grenade.Snapshot]
	tiles   *snapshot.Held[*tilemap.TileMap, tilemap.Snapshot]
}

func (s *Snapshot) Tick() uint64      { return s.tick }
func (s *Snapshot) Map() string       { return s.mapID }
func (s *Snapshot) Scene() Scene      { return s.scene }
func (s *Snapshot) StateHash() string { return s.stateHash }
func (s *Snapshot) Won() bool         { return s.won }
func (s *Snapshot) Lost() bool        { return s.lost }
func (s *Snapshot) Keys() input.Keys  { return s.raw }
func (s *Snapshot) Switching() bool   { return s.mapSwitch != nil }

// Player returns the player's physical state as it was captured.
func (s *Snapshot) Player() (entity.Body, bool) {
	if s.body == nil {
		return entity.Body{}, false
	}
	b := *s.body
	b.Outline = b.Outline.Clone()
	return b, true
}

// LastSent returns the game info captured by the tick that produced this
// snapshot, when it was not delivered live.
func (s *Snapshot) LastSent() (protocol.GameInfoMsg, bool) {
	if s.lastSent == nil {
		return protocol.GameInfoMsg{}, false
	}
	return cloneInfo(*s.lastSent), true
}

// Backup captures the whole world. It panics with *snapshot.InvariantError
// when the world is inconsistent rather than return a partial snapshot.
func (w *World) Backup() *Snapshot {
	if w.player != nil {
		snapshot.Must(slices.Contains(w.objects, w.player), "world", "player is not in the object list")
	}
	if w.boss != nil {
		snapshot.Must(slices.Contains(w.objects, w.boss), "world", "boss is not in the object list")
	}
	snapshot.Must(w.rng != nil && w.physics != nil && w.combat != nil && w.logic != nil &&
		w.danmaku != nil && w.grenade != nil && w.tiles != nil, "world", "subsystem missing on map %q", w.mapID)

	s := &Snapshot{
		tick:           w.tick,
		mapID:          w.mapID,
		scene:          w.scene,
		stateHash:      w.stateHash,
		won:            w.won,
		lost:           w.lost,
		cheating:       w.cheating,
		portalCooldown: w.portalCooldown,

		unlocked: snapshot.Dup(w.unlocked),
		raw:      w.raw,
		prev:     w.prev,
		pressed:  w.pressed,
		answer:   w.answer,

		objects: snapshot.HoldAll[*entity.Object, entity.Snapshot](w.objects),
		static:  w.static,
		items:   snapshot.Dup(w.items),

		textbox: w.textbox.Clone(),
		player:  w.player,
		boss:    w.boss,

		rng:     snapshot.Hold[*rng.System, rng.Snapshot](w.rng),
		physics: snapshot.Hold[*physics.Engine, snapshot.Properties](w.physics),
		combat:  snapshot.Hold[*combat.System, combat.Snapshot](w.combat),
		logic:   snapshot.Hold[*logic.Engine, logic.Snapshot](w.logic),
		danmaku: snapshot.Hold[*danmaku.System, danmaku.Snapshot](w.danmaku),
		grenade: snapshot.Hold[*grenade.System, grenade.Snapshot](w.grenade),
		tiles:   snapshot.Hold[*tilemap.TileMap, tilemap.Snapshot](w.tiles),
	}
	if w.mapSwitch != nil {
		ms := *w.mapSwitch
		s.mapSwitch = &ms
	}
	if w.lastSent != nil {
		info := cloneInfo(*w.lastSent)
		s.lastSent = &info
	}
	if w.player != nil {
		b := w.player.Body()
		s.body = &b
	}
	return s
}

// Restore brings the world back to s. The snapshot is checked completely
// before anything is touched, then every part of the world is restored in
// one go; a snapshot that fails the check panics and leaves the world as it
// was.
func (w *World) Restore(s *Snapshot) {
	w.validate(s)

	w.tick = s.tick
	w.mapID = s.mapID
	w.scene = s.scene
	w.stateHash = s.stateHash
	w.won, w.lost, w.cheating = s.won, s.lost, s.cheating
	w.portalCooldown = s.portalCooldown

	w.unlocked = snapshot.Dup(s.unlocked)
	w.raw, w.prev, w.pressed = s.raw, s.prev, s.pressed
	w.answer = s.answer

	w.objects = snapshot.RestoreAll(w.objects, s.objects)
	w.static = s.static
	w.items = snapshot.Dup(s.items)

	w.mapSwitch = nil
	if s.mapSwitch != nil {
		ms := *s.mapSwitch
		w.mapSwitch = &ms
	}
	w.textbox = s.textbox.Clone()
	w.player, w.boss = s.player, s.boss
	w.lastSent = nil
	if s.lastSent != nil {
		info := cloneInfo(*s.lastSent)
		w.lastSent = &info
	}

	w.rng = s.rng.Restore()
	w.physics = s.physics.Restore()
	w.combat = s.combat.Restore()
	w.logic = s.logic.Restore()
	w.danmaku = s.danmaku.Restore()
	w.grenade = s.grenade.Restore()
	w.tiles = s.tiles.Restore()
}

func (w *World) validate(s *Snapshot) {
	snapshot.Must(s != nil, "world", "restore from nil snapshot")
	snapshot.Must(s.rng != nil && s.physics != nil && s.combat != nil && s.logic != nil &&
		s.danmaku != nil && s.grenade != nil && s.tiles != nil, "world", "snapshot of tick %d is missing a subsystem", s.tick)
	snapshot.Must(s.rng.Obj == w.rng, "world", "snapshot of tick %d belongs to another world", s.tick)
	if s.player != nil {
		found := false
		for _, h := range s.objects {
			snapshot.Must(h != nil && h.Obj != nil, "world", "snapshot of tick %d has an empty object slot", s.tick)
			found = found || h.Obj == s.player
		}
		snapshot.Must(found, "world", "snapshot of tick %d lost its player", s.tick)
	}
}

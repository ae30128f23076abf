package world

import (
	"fmt"
	"maps"

	"timewarp.dev/internal/sim/catalogs"
	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/world/combat"
	"timewarp.dev/internal/sim/world/danmaku"
	"timewarp.dev/internal/sim/world/grenade"
	"timewarp.dev/internal/sim/world/logic"
	"timewarp.dev/internal/sim/world/physics"
	"timewarp.dev/internal/sim/world/tilemap"
)

// load replaces the current map with a fresh instance of map id. The old
// subsystems are dropped, not reset: snapshots taken before the switch
// still hold them and restoring one brings them back.
func (w *World) load(id string) error {
	def, ok := w.cfg.Maps.Map(id)
	if !ok {
		return fmt.Errorf("world: %w: %q", ErrUnknownMap, id)
	}
	t := w.cfg.Tuning

	var layer *tilemap.Layer
	if len(def.Tiles) > 0 {
		var err error
		layer, err = tilemap.ParseLayer(def.Tiles, def.TileSize, def.Origin)
		if err != nil {
			return fmt.Errorf("world: map %q: %w: %v", id, catalogs.ErrInvalidMap, err)
		}
	}
	tiles := tilemap.New(layer)
	var static []*entity.Object
	if layer != nil {
		static = layer.Objects()
	}

	pd := def.Player
	player := entity.New("player", entity.KindPlayer, pd.X, pd.Y, pd.W, pd.H)
	player.Health, player.MaxHealth = pd.Health, pd.Health
	player.PlatformerRules = pd.Platformer
	player.InvertedControls = pd.Inverted
	if w.player != nil && !w.player.Dead {
		player.JumpOverride = w.player.JumpOverride
	}

	objects := []*entity.Object{player}
	solids := make([]*entity.Object, 0, len(static))
	for _, s := range static {
		if s.Solid {
			solids = append(solids, s)
		}
	}
	byID := map[string]*entity.Object{}
	cmb := combat.New(t.Combat, w.rng)
	var boss *entity.Object
	for _, od := range def.Objects {
		o := entity.New(od.ID, entity.Kind(od.Kind), od.X, od.Y, od.W, od.H)
		o.Solid = od.Solid
		o.Damage = od.Damage
		o.Health, o.MaxHealth = od.Health, od.Health
		o.Props = maps.Clone(od.Props)
		if od.Walk != nil {
			entity.AttachWalk(o, geom.Outline(od.Walk.Points), od.Walk.Speed, od.Walk.Pause)
		}
		if od.Weapon != nil {
			cmb.Arm(o, od.Weapon.Interval, od.Weapon.Damage)
		}
		if o.Kind == entity.KindBoss && boss == nil {
			boss = o
		}
		if o.Solid || o.Kind == entity.KindDoor {
			solids = append(solids, o)
		}
		byID[o.ID] = o
		objects = append(objects, o)
	}
	for _, pd := range def.Platforms {
		p := entity.New(pd.ID, entity.KindPlatform, pd.X, pd.Y, pd.W, pd.H)
		tiles.AddPlatform(p, geom.Outline(pd.Walk.Points), pd.Walk.Speed, pd.Walk.Pause)
		solids = append(solids, p)
	}

	net := logic.New()
	for _, nd := range def.Logic {
		n := &logic.Node{ID: nd.ID, Op: logic.Op(nd.Op), Inputs: nd.Inputs, Period: nd.Period}
		if nd.Object != "" {
			n.Obj = byID[nd.Object]
		}
		if err := net.Add(n); err != nil {
			return fmt.Errorf("world: map %q: %w: %v", id, catalogs.ErrInvalidMap, err)
		}
	}
	if err := net.Validate(); err != nil {
		return fmt.Errorf("world: map %q: %w: %v", id, catalogs.ErrInvalidMap, err)
	}
	if def.Countdown > 0 {
		net.StartCountdown(def.Countdown)
	}

	w.mapID = id
	w.scene = ScenePlay
	w.mapSwitch = nil
	w.textbox = nil
	w.portalCooldown = t.PortalCooldown
	w.unlocked = map[string]struct{}{}
	w.objects = objects
	w.static = static
	w.player = player
	w.boss = boss
	w.tiles = tiles
	w.physics = physics.New(t.Physics, player, solids)
	w.combat = cmb
	w.logic = net
	w.danmaku = danmaku.New(t.Danmaku, w.rng, boss)
	w.grenade = grenade.New(t.Grenade)
	w.log.Info("map loaded", "map", id, "tick", w.tick, "objects", len(objects), "solids", len(solids))
	return nil
}

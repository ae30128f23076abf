package world

import (
	"fmt"
	"math"
	"strings"

	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/input"
	"timewarp.dev/internal/sim/world/textbox"
)

const (
	grenadeThrowVX = 4
	grenadeThrowVY = 3
	healAmount     = 25
)

// Tick advances the world by one step using the keys set with
// SetPressedKeys. It fails only when a map switch cannot load its target or
// when real-time game info cannot be delivered.
func (w *World) Tick() error {
	w.tick++
	if w.mapSwitch != nil {
		// input is dropped for the whole transition
		w.raw = 0
	}
	w.pressed = w.raw.Pressed(w.prev)
	w.answer = ""

	var err error
	switch {
	case w.mapSwitch != nil:
		err = w.stepSwitch()
	case w.player != nil:
		w.stepPlay()
	}
	w.prev = w.raw
	if err != nil {
		return err
	}
	w.stateHash = w.digest()
	return w.emit()
}

func (w *World) stepSwitch() error {
	ms := *w.mapSwitch
	ms.Remaining--
	if ms.Remaining > 0 {
		w.mapSwitch = &ms
		return nil
	}
	return w.load(ms.Target)
}

// effectiveKeys applies the player's inverted controls. Drivers that want
// a human's keys to act uninverted pre-invert them before SetPressedKeys.
func (w *World) effectiveKeys() input.Keys {
	if w.player.InvertedControls {
		return w.raw.Inverted()
	}
	return w.raw
}

func (w *World) stepPlay() {
	p := w.player
	keys := w.effectiveKeys()
	pressed := w.pressed
	if w.portalCooldown > 0 {
		w.portalCooldown--
	}

	if w.textbox != nil {
		if w.textbox.Step(pressed) {
			w.answer = w.textbox.Answer()
			w.textbox = nil
		}
		keys, pressed = 0, 0
	}

	before := p.Pos()
	if !p.Dead && !w.won && !w.lost {
		w.physics.Step(keys)
	}
	w.tiles.Step(w.physics)
	if moved := geom.Dist(before, p.Pos()); moved > w.maxStep() && !w.cheating {
		w.cheating = true
		w.log.Warn("player moved too far in one tick", "tick", w.tick, "distance", moved)
	}

	for _, o := range w.objects {
		if o.Walk != nil && !o.Dead {
			o.Walk.Step()
		}
	}
	w.combat.Step(p)
	fire := pressed.Has(input.KeySpace) && !p.Dead
	if w.boss != nil {
		w.danmaku.Step(p, fire)
	} else if fire && w.items["grenade"] > 0 {
		w.items["grenade"]--
		dir := 1.0
		if keys.Has(input.KeyA) {
			dir = -1
		}
		w.grenade.Throw(p, dir*grenadeThrowVX, grenadeThrowVY)
	}
	for _, ex := range w.grenade.Step(w.targets()) {
		w.log.Debug("grenade exploded", "tick", w.tick, "grenade", ex.ID, "hit", ex.Hit)
	}
	for _, door := range w.logic.Step(append([]*entity.Object{p}, w.targets()...)) {
		w.unlocked[door] = struct{}{}
	}
	if w.logic.Expired && !w.won {
		w.lost = true
	}

	w.interact(p, pressed)

	if p.Y < w.cfg.Tuning.KillPlaneY {
		p.Hurt(p.Health)
	}
	if p.Dead && !w.lost {
		w.lost = true
	}
}

// interact resolves contacts between the player and everything it can
// touch on the map.
func (w *World) interact(p *entity.Object, pressed input.Keys) {
	if p.Dead {
		return
	}
	for _, s := range w.static {
		if s.Kind == entity.KindSpike && p.Touches(s) {
			p.Hurt(p.Health)
			return
		}
	}
	for _, o := range w.objects {
		if o == p || o.Dead || !p.Touches(o) {
			continue
		}
		switch o.Kind {
		case entity.KindEnemy, entity.KindBoss, entity.KindSpike:
			p.Hurt(o.Damage)
		case entity.KindItem:
			o.Dead = true
			w.pickUp(p, o)
		case entity.KindPortal:
			if w.portalCooldown == 0 && w.mapSwitch == nil {
				w.mapSwitch = &MapSwitch{From: w.mapID, Target: o.Prop("target"), Remaining: max(1, w.cfg.Tuning.MapSwitchTicks)}
				w.scene = SceneSwitching
				w.log.Info("map switch", "tick", w.tick, "from", w.mapID, "to", o.Prop("target"))
			}
		case entity.KindSign:
			if w.textbox == nil && pressed.Has(input.KeyE) {
				var choices []string
				if c := o.Prop("choices"); c != "" {
					choices = strings.Split(c, "|")
				}
				w.textbox = textbox.New(o.ID, o.Prop("text"), choices...)
			}
		case entity.KindFlag:
			if req := o.Prop("requires"); req != "" {
				if r := w.Object(req); r != nil && !r.Dead {
					continue
				}
			}
			w.won = true
		}
		if p.Dead {
			return
		}
	}
}

func (w *World) pickUp(p *entity.Object, item *entity.Object) {
	w.items[item.ID]++
	switch item.Prop("grants") {
	case "jump_override":
		p.JumpOverride = true
	case "grenade":
		w.items["grenade"]++
	case "health":
		p.Health = math.Min(p.MaxHealth, p.Health+healAmount)
	case "invert":
		p.InvertedControls = !p.InvertedControls
	}
}

func (w *World) targets() []*entity.Object {
	var out []*entity.Object
	for _, o := range w.objects {
		if o.Kind == entity.KindEnemy || o.Kind == entity.KindBoss {
			out = append(out, o)
		}
	}
	return out
}

// maxStep bounds how far the player can legally travel in one tick,
// including a ride on a moving platform.
func (w *World) maxStep() float64 {
	ph := w.cfg.Tuning.Physics
	return 2 * (math.Max(ph.RunSpeed, ph.FreeSpeed) + math.Max(ph.JumpSpeed, ph.MaxFallSpeed) + 1)
}

func (w *World) emit() error {
	info := w.gameInfo()
	if w.realTime && !w.simulating && w.cfg.Net != nil {
		w.lastSent = nil
		if err := w.cfg.Net.Send(info); err != nil {
			return fmt.Errorf("world: send tick %d: %w", w.tick, err)
		}
		return nil
	}
	w.lastSent = &info
	return nil
}

func (w *World) gameInfo() protocol.GameInfoMsg {
	info := protocol.GameInfoMsg{
		Type:            protocol.TypeGameInfo,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick,
		Map:             w.mapID,
		Keys:            w.raw.Names(),
		Won:             w.won,
		Lost:            w.lost,
		Cheating:        w.cheating,
		Answer:          w.answer,
		StateHash:       w.stateHash,
	}
	if w.textbox != nil {
		info.TextInput = w.textbox.Input
	}
	if p := w.player; p != nil {
		info.Player = protocol.PlayerInfo{X: p.X, Y: p.Y, Health: p.Health, Dead: p.Dead}
	}
	return info
}

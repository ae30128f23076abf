// Package entity defines the simulated objects every subsystem operates on.
package entity

import (
	"fmt"

	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/snapshot"
)

type Kind string

const (
	KindPlayer     Kind = "player"
	KindEnemy      Kind = "enemy"
	KindBoss       Kind = "boss"
	KindWall       Kind = "wall"
	KindPlatform   Kind = "platform"
	KindSpike      Kind = "spike"
	KindPortal     Kind = "portal"
	KindFlag       Kind = "flag"
	KindItem       Kind = "item"
	KindDoor       Kind = "door"
	KindSign       Kind = "sign"
	KindPlate      Kind = "plate"
	KindWeapon     Kind = "weapon"
	KindProjectile Kind = "projectile"
	KindBullet     Kind = "bullet"
	KindGrenade    Kind = "grenade"
)

// Object is one simulated entity. Position is the centre of the outline,
// which is stored relative to it.
type Object struct {
	noCopy snapshot.NoCopy

	ID   string
	Kind Kind
	Name string

	X, Y   float64
	VX, VY float64

	Outline geom.Outline

	Health    float64
	MaxHealth float64
	Dead      bool

	InTheAir         bool
	JumpOverride     bool
	PlatformerRules  bool
	InvertedControls bool

	Solid  bool
	Damage float64
	Props  map[string]string

	// Walk is snapshotted as a held value so its instance survives restore.
	Walk *WalkData `snap:"-"`

	hitbox geom.Box
}

// New builds a w x h object centred on (x, y).
func New(id string, kind Kind, x, y, w, h float64) *Object {
	o := &Object{
		ID:      id,
		Kind:    kind,
		X:       x,
		Y:       y,
		Outline: geom.Rect(w, h),
	}
	o.Refresh()
	return o
}

func (o *Object) String() string {
	return fmt.Sprintf("%s(%s @%.1f,%.1f)", o.Kind, o.ID, o.X, o.Y)
}

// Refresh re-derives the cached hitbox from position and outline.
func (o *Object) Refresh() {
	o.hitbox = o.Outline.Bounds().Translate(o.X, o.Y)
}

func (o *Object) Hitbox() geom.Box { return o.hitbox }

func (o *Object) Pos() geom.Point { return geom.Point{X: o.X, Y: o.Y} }

// AbsOutline returns the outline in world coordinates.
func (o *Object) AbsOutline() geom.Outline { return o.Outline.Translate(o.X, o.Y) }

func (o *Object) SetPos(x, y float64) {
	o.X, o.Y = x, y
	o.Refresh()
}

func (o *Object) Move(dx, dy float64) { o.SetPos(o.X+dx, o.Y+dy) }

func (o *Object) Touches(other *Object) bool { return o.hitbox.Overlaps(other.hitbox) }

// Hurt subtracts damage and marks the object dead at zero health.
func (o *Object) Hurt(damage float64) {
	if o.Dead || damage <= 0 {
		return
	}
	o.Health -= damage
	if o.Health <= 0 {
		o.Health = 0
		o.Dead = true
	}
}

func (o *Object) Prop(key string) string {
	if o.Props == nil {
		return ""
	}
	return o.Props[key]
}

func (o *Object) SetProp(key, value string) {
	if o.Props == nil {
		o.Props = map[string]string{}
	}
	o.Props[key] = value
}

// Snapshot is the captured state of an Object.
type Snapshot struct {
	Props snapshot.Properties
	Walk  *snapshot.Held[*WalkData, snapshot.Properties]
}

func (o *Object) Backup() Snapshot {
	snapshot.Must(len(o.Outline) > 0, "entity", "%s has no outline", o)
	if o.Walk != nil {
		snapshot.Must(o.Walk.obj == o, "entity", "%s walk data belongs to another object", o)
	}
	return Snapshot{
		Props: snapshot.Capture(o),
		Walk:  snapshot.Hold[*WalkData, snapshot.Properties](o.Walk),
	}
}

func (o *Object) Restore(s Snapshot) {
	snapshot.Apply(o, s.Props)
	o.Walk = s.Walk.Restore()
	o.Refresh()
}

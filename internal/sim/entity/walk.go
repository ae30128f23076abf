package entity

import (
	"math"

	"timewarp.dev/internal/sim/geom"
	"timewarp.dev/internal/sim/snapshot"
)

// WalkData moves its object around a closed loop of waypoints, pausing at
// each one.
type WalkData struct {
	noCopy snapshot.NoCopy

	Points geom.Outline
	Index  int
	Speed  float64
	Pause  int
	Wait   int

	obj *Object
}

// AttachWalk gives obj a patrol route.
func AttachWalk(obj *Object, points geom.Outline, speed float64, pause int) *WalkData {
	w := &WalkData{Points: points.Clone(), Speed: speed, Pause: pause, obj: obj}
	obj.Walk = w
	return w
}

func (w *WalkData) Object() *Object { return w.obj }

// Step advances the object one tick along the route and returns how far it
// moved.
func (w *WalkData) Step() (dx, dy float64) {
	o := w.obj
	if len(w.Points) == 0 || w.Speed <= 0 {
		o.VX, o.VY = 0, 0
		return 0, 0
	}
	if w.Wait > 0 {
		w.Wait--
		o.VX, o.VY = 0, 0
		return 0, 0
	}
	target := w.Points[w.Index%len(w.Points)]
	ex, ey := target.X-o.X, target.Y-o.Y
	dist := math.Hypot(ex, ey)
	if dist <= w.Speed {
		dx, dy = ex, ey
		w.Index = (w.Index + 1) % len(w.Points)
		w.Wait = w.Pause
	} else {
		dx, dy = ex/dist*w.Speed, ey/dist*w.Speed
	}
	o.VX, o.VY = dx, dy
	o.Move(dx, dy)
	return dx, dy
}

func (w *WalkData) Backup() snapshot.Properties { return snapshot.Capture(w) }

func (w *WalkData) Restore(p snapshot.Properties) { snapshot.Apply(w, p) }

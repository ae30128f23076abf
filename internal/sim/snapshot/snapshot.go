// Package snapshot is the backup/restore contract shared by every stateful
// part of the simulation, plus the generic duplication routine the
// subsystem adapters build their snapshots from.
//
// A snapshot is a value: once captured it is never mutated and never shares
// mutable storage with the live object graph. Collections are duplicated
// element by element, geometric points and outlines are deep-copied, and
// everything else (numbers, strings, key sets, pointers to other stateful
// objects) is shared because it is immutable or snapshotted on its own.
package snapshot

import "reflect"

// Snapshotable is implemented by every stateful type. Backup must not mutate
// the receiver; Restore must bring it back to exactly the captured state,
// re-deriving any cached fields left out of the snapshot.
type Snapshotable[S any] interface {
	Backup() S
	Restore(S)
}

// Held pairs a live instance with a state captured from it, so restoring
// replays the state onto the very same instance and any outside references
// to it stay valid.
type Held[T Snapshotable[S], S any] struct {
	Obj   T
	State S
}

// Hold captures obj, or returns nil when obj is a nil pointer.
func Hold[T Snapshotable[S], S any](obj T) *Held[T, S] {
	if isNil(obj) {
		return nil
	}
	return &Held[T, S]{Obj: obj, State: obj.Backup()}
}

// Restore replays the state onto the held instance and returns it. A nil
// Held restores to the zero value (no instance).
func (h *Held[T, S]) Restore() T {
	if h == nil {
		var zero T
		return zero
	}
	h.Obj.Restore(h.State)
	return h.Obj
}

// HoldAll captures every element of objs in order.
func HoldAll[T Snapshotable[S], S any](objs []T) []*Held[T, S] {
	if len(objs) == 0 {
		return nil
	}
	out := make([]*Held[T, S], 0, len(objs))
	for _, o := range objs {
		h := Hold[T, S](o)
		Must(h != nil, "snapshot", "nil element in held collection")
		out = append(out, h)
	}
	return out
}

// RestoreAll clears dst and re-populates it with the held instances after
// replaying their states, reusing dst's backing array.
func RestoreAll[T Snapshotable[S], S any](dst []T, held []*Held[T, S]) []T {
	dst = dst[:0]
	for _, h := range held {
		dst = append(dst, h.Restore())
	}
	return dst
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// NoCopy is embedded as a named field in stateful types so that `go vet`
// reports accidental value copies. Duplication goes through Backup/Restore.
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

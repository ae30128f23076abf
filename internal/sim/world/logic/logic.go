// Package logic evaluates the signal network of pressure plates, gates and
// clocks that opens doors, plus the level countdown.
package logic

import (
	"fmt"
	"slices"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/snapshot"
)

type Op string

const (
	OpPlate Op = "plate"
	OpAnd   Op = "and"
	OpOr    Op = "or"
	OpNot   Op = "not"
	OpClock Op = "clock"
	OpDoor  Op = "door"
)

type Node struct {
	noCopy snapshot.NoCopy

	ID     string
	Op     Op
	Inputs []string
	Period int
	Obj    *entity.Object

	Value bool
	Phase int
}

// NodeState is the mutable part of a node.
type NodeState struct {
	ID    string
	Value bool
	Phase int
}

// Engine evaluates nodes in id order. Gates read the values their inputs had
// at the end of the previous tick, so the result never depends on map order.
type Engine struct {
	noCopy snapshot.NoCopy

	nodes map[string]*Node
	order []string

	Countdown int
	Expired   bool
}

func New() *Engine {
	return &Engine{nodes: map[string]*Node{}, Countdown: -1}
}

func (e *Engine) Add(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("logic: node without id")
	}
	if _, dup := e.nodes[n.ID]; dup {
		return fmt.Errorf("logic: duplicate node %q", n.ID)
	}
	switch n.Op {
	case OpPlate, OpDoor:
		if n.Obj == nil {
			return fmt.Errorf("logic: %s node %q needs an object", n.Op, n.ID)
		}
	case OpClock:
		if n.Period <= 0 {
			return fmt.Errorf("logic: clock %q needs a positive period", n.ID)
		}
	case OpAnd, OpOr, OpNot:
	default:
		return fmt.Errorf("logic: node %q has unknown op %q", n.ID, n.Op)
	}
	e.nodes[n.ID] = n
	i, _ := slices.BinarySearch(e.order, n.ID)
	e.order = slices.Insert(e.order, i, n.ID)
	if n.Op == OpDoor {
		n.Obj.Solid = !n.Value
	}
	return nil
}

func (e *Engine) Node(id string) *Node { return e.nodes[id] }

// Validate checks that every input refers to a known node.
func (e *Engine) Validate() error {
	for _, id := range e.order {
		for _, in := range e.nodes[id].Inputs {
			if _, ok := e.nodes[in]; !ok {
				return fmt.Errorf("logic: node %q reads unknown input %q", id, in)
			}
		}
	}
	return nil
}

func (e *Engine) StartCountdown(ticks int) {
	e.Countdown = ticks
	e.Expired = false
}

// Step evaluates one tick. actors are the objects that can weigh down
// plates. It returns the ids of doors that opened this tick.
func (e *Engine) Step(actors []*entity.Object) []string {
	prev := make(map[string]bool, len(e.nodes))
	for id, n := range e.nodes {
		prev[id] = n.Value
	}
	var opened []string
	for _, id := range e.order {
		n := e.nodes[id]
		switch n.Op {
		case OpPlate:
			n.Value = false
			for _, a := range actors {
				if !a.Dead && a.Touches(n.Obj) {
					n.Value = true
					break
				}
			}
		case OpClock:
			n.Phase = (n.Phase + 1) % (2 * n.Period)
			n.Value = n.Phase >= n.Period
		case OpAnd:
			n.Value = len(n.Inputs) > 0
			for _, in := range n.Inputs {
				n.Value = n.Value && prev[in]
			}
		case OpOr:
			n.Value = false
			for _, in := range n.Inputs {
				n.Value = n.Value || prev[in]
			}
		case OpNot:
			n.Value = len(n.Inputs) == 0 || !prev[n.Inputs[0]]
		case OpDoor:
			n.Value = false
			for _, in := range n.Inputs {
				n.Value = n.Value || prev[in]
			}
			if n.Value && !prev[id] {
				opened = append(opened, n.Obj.ID)
			}
			n.Obj.Solid = !n.Value
		}
	}
	if e.Countdown > 0 {
		e.Countdown--
		if e.Countdown == 0 {
			e.Expired = true
		}
	}
	return opened
}

type Snapshot struct {
	Nodes     []NodeState
	Countdown int
	Expired   bool
}

func (e *Engine) Backup() Snapshot {
	s := Snapshot{Countdown: e.Countdown, Expired: e.Expired, Nodes: make([]NodeState, 0, len(e.order))}
	for _, id := range e.order {
		n := e.nodes[id]
		snapshot.Must(n.ID == id, "logic", "node registered as %q reports id %q", id, n.ID)
		s.Nodes = append(s.Nodes, NodeState{ID: id, Value: n.Value, Phase: n.Phase})
	}
	return s
}

// Restore replays node states onto the existing node instances.
func (e *Engine) Restore(s Snapshot) {
	snapshot.Must(len(s.Nodes) == len(e.nodes), "logic", "snapshot has %d nodes, network has %d", len(s.Nodes), len(e.nodes))
	for _, ns := range s.Nodes {
		_, ok := e.nodes[ns.ID]
		snapshot.Must(ok, "logic", "snapshot node %q not in network", ns.ID)
	}
	for _, ns := range s.Nodes {
		n := e.nodes[ns.ID]
		n.Value, n.Phase = ns.Value, ns.Phase
		if n.Op == OpDoor {
			n.Obj.Solid = !n.Value
		}
	}
	e.Countdown, e.Expired = s.Countdown, s.Expired
}

// Package history keeps the rewind timeline: a linear list of snapshots with
// a cursor, where appending past the cursor discards the old future.
//
// Sentinel entries come in pairs and bracket blocks of ticks that must be
// stepped over as a unit. Stepping never leaves the cursor between a pair.
package history

import (
	"errors"
	"fmt"
)

// ErrSeekFailed means a step entered a bracketed block whose closing
// sentinel is missing. The timeline is left as it was.
var ErrSeekFailed = errors.New("history: seek failed")

// Entry is either a state or a sentinel.
type Entry[S any] struct {
	State    S
	Sentinel bool
}

// Timeline is not safe for concurrent use.
type Timeline[S any] struct {
	entries []Entry[S]
	cursor  int
}

func New[S any]() *Timeline[S] {
	return &Timeline[S]{cursor: -1}
}

func (t *Timeline[S]) Len() int { return len(t.entries) }

// Cursor is the index of the current entry. It is -1 for an empty or
// freshly drained timeline and may equal Len() after a block at the very
// end was skipped.
func (t *Timeline[S]) Cursor() int { return t.cursor }

// Append drops every entry after the cursor, adds s and moves the cursor
// onto it.
func (t *Timeline[S]) Append(s S) {
	t.push(Entry[S]{State: s})
}

// AppendSentinel opens or closes a bracketed block.
func (t *Timeline[S]) AppendSentinel() {
	t.push(Entry[S]{Sentinel: true})
}

func (t *Timeline[S]) push(e Entry[S]) {
	keep := min(t.cursor+1, len(t.entries))
	clear(t.entries[keep:])
	t.entries = append(t.entries[:keep], e)
	t.cursor = len(t.entries) - 1
}

// Current returns the state under the cursor. It reports false when the
// cursor is out of range or on a sentinel.
func (t *Timeline[S]) Current() (S, bool) {
	if t.cursor < 0 || t.cursor >= len(t.entries) || t.entries[t.cursor].Sentinel {
		var zero S
		return zero, false
	}
	return t.entries[t.cursor].State, true
}

// Step moves the cursor one entry forward or backward and returns the state
// it lands on, if any. Stepping onto a sentinel skips the whole block and
// lands on the entry beyond the closing sentinel, which may be past either
// end of the timeline. Blocks that follow each other are skipped as one.
// Stepping back from a cursor left on a closing sentinel skips the block it
// closes. At the ends Step does nothing.
func (t *Timeline[S]) Step(forward bool) (S, bool, error) {
	var zero S
	d := 1
	if !forward {
		d = -1
	}
	if forward && t.cursor+1 >= len(t.entries) || !forward && t.cursor <= 0 {
		return zero, false, nil
	}
	i := t.cursor + d
	if !forward && t.cursor < len(t.entries) && t.entries[t.cursor].Sentinel {
		// resting on the sentinel that just closed a block
		i = t.cursor
	}
	// adjacent blocks are skipped together
	for i >= 0 && i < len(t.entries) && t.entries[i].Sentinel {
		open := i
		closed := false
		for i += d; i >= 0 && i < len(t.entries); {
			e := t.entries[i]
			i += d
			if e.Sentinel {
				closed = true
				break
			}
		}
		if !closed {
			return zero, false, fmt.Errorf("%w: block at entry %d has no closing sentinel", ErrSeekFailed, open)
		}
	}
	t.cursor = i
	s, ok := t.Current()
	return s, ok, nil
}

// Entries returns a copy of the timeline.
func (t *Timeline[S]) Entries() []Entry[S] {
	return append([]Entry[S](nil), t.entries...)
}

// DrainToCursor removes and returns every entry up to and including the
// cursor. The entries after it stay, and the cursor resets to -1.
func (t *Timeline[S]) DrainToCursor() []Entry[S] {
	if t.cursor < 0 {
		return nil
	}
	n := min(t.cursor+1, len(t.entries))
	out := append([]Entry[S](nil), t.entries[:n]...)
	t.entries = append([]Entry[S](nil), t.entries[n:]...)
	t.cursor = -1
	return out
}

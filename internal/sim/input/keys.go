// Package input models the keys the simulation reacts to. Key sets are small
// immutable bitmasks so they can be synthesized for simulated ticks and shared
// freely between snapshots.
package input

import (
	"fmt"
	"math/bits"
	"strings"
)

type Key uint8

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyE
	KeyLShift
	KeySpace
	keyCount
)

var keyNames = [keyCount]string{
	KeyW:      "W",
	KeyA:      "A",
	KeyS:      "S",
	KeyD:      "D",
	KeyE:      "E",
	KeyLShift: "LSHIFT",
	KeySpace:  "SPACE",
}

func (k Key) String() string {
	if k >= keyCount {
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
	return keyNames[k]
}

// ParseKey resolves a key by its name, case-insensitively.
func ParseKey(name string) (Key, error) {
	for k, n := range keyNames {
		if strings.EqualFold(n, name) {
			return Key(k), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// Keys is a set of pressed keys.
type Keys uint16

func Of(keys ...Key) Keys {
	var s Keys
	for _, k := range keys {
		s |= 1 << k
	}
	return s
}

func (s Keys) Has(k Key) bool { return s&(1<<k) != 0 }

func (s Keys) With(keys ...Key) Keys { return s | Of(keys...) }

func (s Keys) Without(keys ...Key) Keys { return s &^ Of(keys...) }

func (s Keys) Len() int { return bits.OnesCount16(uint16(s)) }

func (s Keys) Empty() bool { return s == 0 }

// Pressed returns the keys in s that are not in prev.
func (s Keys) Pressed(prev Keys) Keys { return s &^ prev }

func (s Keys) Slice() []Key {
	out := make([]Key, 0, s.Len())
	for k := Key(0); k < keyCount; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s Keys) Names() []string {
	ks := s.Slice()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.String()
	}
	return out
}

func (s Keys) String() string {
	if s == 0 {
		return "-"
	}
	return strings.Join(s.Names(), "+")
}

// ParseKeys accepts names separated by '+', ',' or whitespace. "-" and the
// empty string are the empty set.
func ParseKeys(text string) (Keys, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "-" {
		return 0, nil
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '+' || r == ',' || r == ' ' || r == '\t'
	})
	var s Keys
	for _, f := range fields {
		k, err := ParseKey(f)
		if err != nil {
			return 0, err
		}
		s = s.With(k)
	}
	return s, nil
}

var invertedPairs = [...][2]Key{{KeyW, KeyS}, {KeyA, KeyD}}

// Inverted swaps up/down and left/right. A pair held together is left alone.
func (s Keys) Inverted() Keys {
	out := s
	for _, p := range invertedPairs {
		a, b := p[0], p[1]
		switch {
		case s.Has(a) && !s.Has(b):
			out = out.Without(a).With(b)
		case s.Has(b) && !s.Has(a):
			out = out.Without(b).With(a)
		}
	}
	return out
}

// Package rng owns every random stream the world draws from. The streams are
// PCG generators whose full state is part of the world snapshot, so a
// restored world draws exactly the numbers it drew the first time.
package rng

import (
	"hash/fnv"
	"math/rand/v2"

	"timewarp.dev/internal/sim/snapshot"
)

type System struct {
	noCopy snapshot.NoCopy

	seed int64

	global  *rand.PCG
	float   *rand.PCG
	pattern *rand.PCG

	// Global drives gameplay rolls, Float visual jitter and bullet spread,
	// Pattern enemy and boss behaviour choices.
	Global  *rand.Rand
	Float   *rand.Rand
	Pattern *rand.Rand
}

func New(seed int64) *System {
	s := &System{
		seed:    seed,
		global:  newStream(seed, "global"),
		float:   newStream(seed, "float"),
		pattern: newStream(seed, "pattern"),
	}
	s.Global = rand.New(s.global)
	s.Float = rand.New(s.float)
	s.Pattern = rand.New(s.pattern)
	return s
}

func (s *System) Seed() int64 { return s.seed }

// Reseed resets every stream as if the system had just been created.
func (s *System) Reseed(seed int64) {
	s.seed = seed
	*s.global = *newStream(seed, "global")
	*s.float = *newStream(seed, "float")
	*s.pattern = *newStream(seed, "pattern")
}

func newStream(seed int64, label string) *rand.PCG {
	h := fnv.New64a()
	var b [8]byte
	for i := range b {
		b[i] = byte(uint64(seed) >> (8 * i))
	}
	h.Write(b[:])
	h.Write([]byte{0})
	h.Write([]byte(label))
	sum := h.Sum64()
	if sum == 0 {
		sum = 1
	}
	return rand.NewPCG(uint64(seed), sum)
}

type Snapshot struct {
	Seed    int64
	Global  []byte
	Float   []byte
	Pattern []byte
}

func (s *System) Backup() Snapshot {
	return Snapshot{
		Seed:    s.seed,
		Global:  marshal(s.global, "global"),
		Float:   marshal(s.float, "float"),
		Pattern: marshal(s.pattern, "pattern"),
	}
}

func (s *System) Restore(snap Snapshot) {
	s.seed = snap.Seed
	unmarshal(s.global, snap.Global, "global")
	unmarshal(s.float, snap.Float, "float")
	unmarshal(s.pattern, snap.Pattern, "pattern")
}

func marshal(p *rand.PCG, name string) []byte {
	b, err := p.MarshalBinary()
	snapshot.Must(err == nil, "rng", "marshal %s stream: %v", name, err)
	return b
}

func unmarshal(p *rand.PCG, b []byte, name string) {
	err := p.UnmarshalBinary(b)
	snapshot.Must(err == nil, "rng", "restore %s stream: %v", name, err)
}

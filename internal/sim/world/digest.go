package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"timewarp.dev/internal/sim/entity"
)

// digest chains the previous state hash with everything a tick can change
// that the game server can observe. Replaying the same inputs from the same
// snapshot must reproduce the same chain.
func (w *World) digest() string {
	h := sha256.New()
	var tmp [8]byte

	h.Write([]byte(w.stateHash))
	digestWriteU64(h, &tmp, w.tick)
	digestWriteU64(h, &tmp, uint64(w.raw))
	h.Write([]byte(w.mapID))
	h.Write([]byte{0, boolByte(w.won), boolByte(w.lost), boolByte(w.mapSwitch != nil)})
	if w.mapSwitch != nil {
		h.Write([]byte(w.mapSwitch.Target))
		digestWriteI64(h, &tmp, int64(w.mapSwitch.Remaining))
	}
	for _, o := range w.objects {
		digestObject(h, &tmp, o)
	}
	for _, p := range w.tiles.Platforms {
		digestObject(h, &tmp, p)
	}
	digestWriteU64(h, &tmp, uint64(len(w.combat.Active)))
	for _, p := range w.combat.Active {
		digestObject(h, &tmp, p.Body)
	}
	digestWriteU64(h, &tmp, uint64(len(w.danmaku.Bullets)+len(w.danmaku.PlayerBullets)))
	digestWriteU64(h, &tmp, uint64(len(w.grenade.Grenades)))
	return hex.EncodeToString(h.Sum(nil))
}

func digestObject(h hashWriter, tmp *[8]byte, o *entity.Object) {
	h.Write([]byte(o.ID))
	h.Write([]byte{0, boolByte(o.Dead), boolByte(o.InTheAir), boolByte(o.Solid)})
	digestWriteF64(h, tmp, o.X)
	digestWriteF64(h, tmp, o.Y)
	digestWriteF64(h, tmp, o.VX)
	digestWriteF64(h, tmp, o.VY)
	digestWriteF64(h, tmp, o.Health)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"voxelyard.dev/internal/sim/inventory"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
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

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

// Digest hashes the block configuration, the hand and the player state.
// Instance ids are left out: picking a block up and putting it back in the
// same cell yields the same digest.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteString(h, &tmp, w.cat.Digest)

	res := w.supply.Blocks()
	digestWriteU64(h, &tmp, uint64(len(res)))
	for _, b := range res {
		digestWriteString(h, &tmp, b.InstanceID)
	}

	placed := w.PlacedBlocks()
	sort.Slice(placed, func(i, j int) bool { return cellLess(placed[i], placed[j]) })
	digestWriteU64(h, &tmp, uint64(len(placed)))
	for _, b := range placed {
		digestWriteI64(h, &tmp, int64(b.Cell.X))
		digestWriteI64(h, &tmp, int64(b.Cell.Y))
		digestWriteI64(h, &tmp, int64(b.Cell.Z))
		digestWriteString(h, &tmp, b.TypeID)
	}

	digestWriteString(h, &tmp, w.hand.HeldTypeID())

	p := w.player
	for i := 0; i < 3; i++ {
		digestWriteF64(h, &tmp, p.Position[i])
		digestWriteF64(h, &tmp, p.Velocity[i])
	}
	digestWriteF64(h, &tmp, p.Yaw)
	digestWriteF64(h, &tmp, p.Pitch)

	return hex.EncodeToString(h.Sum(nil))
}

func cellLess(a, b inventory.PlacedBlock) bool {
	if a.Cell.X != b.Cell.X {
		return a.Cell.X < b.Cell.X
	}
	if a.Cell.Y != b.Cell.Y {
		return a.Cell.Y < b.Cell.Y
	}
	return a.Cell.Z < b.Cell.Z
}

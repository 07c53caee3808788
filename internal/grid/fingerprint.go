package grid

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies the terrain content of a map. Two maps with identical
// grids and bounds share a fingerprint; any footprint change produces a new one.
type Fingerprint [blake2b.Size256]byte

// String returns the hex form used as a storage key.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 16 hex digits, for logs.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:8])
}

// Fingerprint hashes dimensions, bounds and every tile record. The hash is
// computed once per Map.
func (m *Map) Fingerprint() Fingerprint {
	m.fpOnce.Do(func() { m.fp = m.hash() })
	return m.fp
}

func (m *Map) hash() Fingerprint {
	h, _ := blake2b.New256(nil) // nil key never fails

	var buf [8]byte
	for _, v := range []int{m.width, m.height, m.bounds.X0, m.bounds.Y0, m.bounds.X1, m.bounds.Y1} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, p := range m.points {
		binary.LittleEndian.PutUint64(buf[:], uint64(p.Height))
		var flags byte
		if p.Walkable {
			flags |= 1
		}
		if p.Placeable {
			flags |= 2
		}
		h.Write(buf[:])
		h.Write([]byte{flags})
	}

	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}

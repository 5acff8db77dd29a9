package arena

import (
	"crypto/rand"
	"encoding/binary"
)

const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateRoomID produces a short, QR-friendly room identifier. It
// excludes visually ambiguous characters (0/O, 1/I) the way the
// teacher's own room-code generator does, just at a length tuned for
// this system's opaque `room_id` rather than a 5-character lobby code.
func generateRoomID() string {
	const length = 6
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic("arena: failed to read random bytes: " + err.Error())
	}
	out := make([]byte, length)
	for i, v := range b {
		out[i] = roomIDAlphabet[int(v)%len(roomIDAlphabet)]
	}
	return string(out)
}

// generateSeed produces a random 64-bit seed for client-side RNG.
func generateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("arena: failed to read random bytes: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}

package network

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Direction tags keep the two ends from ever sealing with the same
// nonce under the shared key.
const (
	PUBLISHER uint8 = iota
	SUBSCRIBER
)

const NONCE_BYTES = 12

type nonce uint64

func (n *nonce) nextGCMNonce(dir uint8) []byte {
	*n += 1
	if uint64(*n) > uint64(math.MaxUint32) {
		panic(fmt.Sprintf("nonce pool exceeded %d", *n))
	}
	b := make([]byte, NONCE_BYTES)

	b[0] = byte(dir)
	binary.LittleEndian.PutUint64(b[4:], uint64(*n))
	return b
}

// nonceFromBytes returns a nonce value and the "direction" of the
// nonce, which should match either PUBLISHER or SUBSCRIBER
func nonceFromBytes(b []byte) (nonce, uint8) {
	if len(b) != NONCE_BYTES {
		panic("invalid nonce bytes passed in")
	}
	n := binary.LittleEndian.Uint64(b[4:])
	if n > uint64(math.MaxUint32) {
		panic(fmt.Sprintf("nonce pool exceeded %d", n))
	}
	return nonce(n), uint8(b[0])
}

// validNonce reports whether b could have come from nextGCMNonce.
func validNonce(b []byte) bool {
	if len(b) != NONCE_BYTES {
		return false
	}
	n := binary.LittleEndian.Uint64(b[4:])
	return n > 0 && n <= uint64(math.MaxUint32)
}

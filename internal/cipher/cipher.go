// Package cipher composes a registry's per-transform Codec functions into
// the engine's InputProfile execution: apply every transform in sequence
// order per its TR, repeated GR times for encode; apply inverses in reverse
// order for decode. Individual transform implementations remain an external
// collaborator (spec §1); this package only does the composition the engine
// itself owns.
package cipher

import (
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/registry"
)

// Cipher executes InputProfiles against a Registry.
type Cipher struct {
	reg *registry.Registry
}

// New creates a Cipher bound to reg.
func New(reg *registry.Registry) *Cipher {
	return &Cipher{reg: reg}
}

// Encrypt applies profile.Sequence's transforms in order, each for its TR
// rounds, the whole pass repeated GlobalRounds times.
func (c *Cipher) Encrypt(input []byte, profile model.InputProfile) ([]byte, bool) {
	data := append([]byte(nil), input...)

	for g := uint32(0); g < profile.GlobalRounds; g++ {
		for _, item := range profile.Sequence.Items {
			codec, ok := c.reg.Codec(item.ID)
			if !ok {
				return nil, false
			}

			data = codec.Encode(data, item.TR)
		}
	}

	return data, true
}

// Decrypt applies the inverse of Encrypt: global rounds and sequence order
// both reversed.
func (c *Cipher) Decrypt(input []byte, profile model.InputProfile) ([]byte, bool) {
	data := append([]byte(nil), input...)

	items := profile.Sequence.Items

	for g := uint32(0); g < profile.GlobalRounds; g++ {
		for i := len(items) - 1; i >= 0; i-- {
			item := items[i]

			codec, ok := c.reg.Codec(item.ID)
			if !ok {
				return nil, false
			}

			data = codec.Decode(data, item.TR)
		}
	}

	return data, true
}

// RoundTrip encrypts then decrypts input under profile, reporting whether
// the result matches input exactly (spec §4.6 step 6c / §8's "MungeCore
// round-trip" invariant).
func (c *Cipher) RoundTrip(input []byte, profile model.InputProfile) (reversible bool, payload []byte) {
	enc, ok := c.Encrypt(input, profile)
	if !ok {
		return false, nil
	}

	dec, ok := c.Decrypt(enc, profile)
	if !ok {
		return false, nil
	}

	if !bytesEqual(dec, input) {
		return false, nil
	}

	return true, enc
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// FlipBit returns a copy of data with bit (byteIdx, bitIdx) flipped, used to
// build avalanche/key-dependency probe inputs.
func FlipBit(data []byte, byteIdx, bitIdx int) []byte {
	out := append([]byte(nil), data...)
	if byteIdx >= 0 && byteIdx < len(out) {
		out[byteIdx] ^= 1 << uint(bitIdx%8)
	}

	return out
}

// DiffBuffer XORs two equal-length buffers, producing the bit-difference
// buffer the analyzer consumes for avalanche/key-dependency scoring.
func DiffBuffer(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	out := make([]byte, n)

	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}

	return out
}

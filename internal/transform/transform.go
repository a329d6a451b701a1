// Package transform provides reference Codec fixtures so the search engine
// is exercisable end-to-end. Production transform logic is an external
// collaborator (spec §1); these fixtures make no cryptographic claims.
package transform

import "math/bits"

// XOR is a self-inverse byte-wise XOR with a fixed key, repeated per round.
type XOR struct{ Key byte }

func (x XOR) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	for r := uint8(0); r < rounds; r++ {
		for i := range out {
			out[i] ^= x.Key
		}
	}

	return out
}

func (x XOR) Decode(data []byte, rounds uint8) []byte {
	return x.Encode(data, rounds) // self-inverse
}

// RotateLeft rotates every byte left by Bits, `rounds` times. Its inverse is
// RotateRight with the same Bits.
type RotateLeft struct{ Bits int }

func (r RotateLeft) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	for i := 0; i < int(rounds); i++ {
		for j := range out {
			out[j] = bits.RotateLeft8(out[j], r.Bits)
		}
	}

	return out
}

func (r RotateLeft) Decode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	for i := 0; i < int(rounds); i++ {
		for j := range out {
			out[j] = bits.RotateLeft8(out[j], -r.Bits)
		}
	}

	return out
}

// RotateRight is the mirror image of RotateLeft, used as its registered
// inverse transform.
type RotateRight struct{ Bits int }

func (r RotateRight) Encode(data []byte, rounds uint8) []byte {
	return RotateLeft{Bits: r.Bits}.Decode(data, rounds)
}

func (r RotateRight) Decode(data []byte, rounds uint8) []byte {
	return RotateLeft{Bits: r.Bits}.Encode(data, rounds)
}

// ByteSwapPairs swaps adjacent byte pairs; self-inverse, rounds beyond 1
// toggle back and forth (odd rounds swap, even rounds are identity).
type ByteSwapPairs struct{}

func (ByteSwapPairs) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	if rounds%2 == 0 {
		return out
	}

	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}

	return out
}

func (b ByteSwapPairs) Decode(data []byte, rounds uint8) []byte {
	return b.Encode(data, rounds) // self-inverse
}

// AddConstant adds a fixed constant to every byte mod 256, `rounds` times.
// Its inverse is SubConstant with the same value.
type AddConstant struct{ Value byte }

func (a AddConstant) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	for r := uint8(0); r < rounds; r++ {
		for i := range out {
			out[i] += a.Value
		}
	}

	return out
}

func (a AddConstant) Decode(data []byte, rounds uint8) []byte {
	return SubConstant{Value: a.Value}.Encode(data, rounds)
}

// SubConstant is the registered inverse of AddConstant.
type SubConstant struct{ Value byte }

func (s SubConstant) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	for r := uint8(0); r < rounds; r++ {
		for i := range out {
			out[i] -= s.Value
		}
	}

	return out
}

func (s SubConstant) Decode(data []byte, rounds uint8) []byte {
	return AddConstant{Value: s.Value}.Encode(data, rounds)
}

// ReverseBytes reverses the buffer; self-inverse.
type ReverseBytes struct{}

func (ReverseBytes) Encode(data []byte, rounds uint8) []byte {
	out := append([]byte(nil), data...)
	if rounds%2 == 0 {
		return out
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}

func (r ReverseBytes) Decode(data []byte, rounds uint8) []byte {
	return r.Encode(data, rounds)
}

package secure

import "encoding/binary"

// Expand derives length bytes of sub-key material from a master key using
// the engine as an HKDF-style pseudorandom function. The engine is keyed with
// masterKey; each round computes MAC(lastBlock ‖ info ‖ [octet]) and the
// round outputs are concatenated, truncating the final block. The first round
// is seeded with the caller-supplied previous block, which is how the second
// sub-key derivation chains the first sub-key into its input: two independent
// keys come out of one master secret with domain separation through distinct
// info strings and counter octets, without a second master secret.
//
// Varying previous, info or octet changes every output byte, and the routine
// is fully deterministic in its inputs.
func (m *Mac) Expand(masterKey, previous, info []byte, octet byte, length int) []byte {
	m.SetKey(masterKey)

	block := make([]byte, len(previous))
	copy(block, previous)

	out := make([]byte, 0, length)
	for len(out) < length {
		round := make([]byte, 0, len(block)+len(info)+1)
		round = append(round, block...)
		round = append(round, info...)
		round = append(round, octet)
		block = m.CalculateMac(round)
		out = append(out, block...)
	}
	return out[:length]
}

// ExpandLegacy reproduces the exact first-round byte layout of the original
// journal scheme so that envelopes it produced can still be decoded. That
// layout diverges from the standard construction in two ways: the counter
// octet is written as a 4-byte big-endian word over the head of the round
// buffer rather than appended, and rounds are not chained, so every round
// emits the same block. Use Expand for anything new; this exists purely as a
// compatibility contract.
func (m *Mac) ExpandLegacy(masterKey, previous, info []byte, octet byte, length int) []byte {
	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], uint32(octet))

	data := make([]byte, len(previous)+len(info)+len(counter))
	copy(data, previous)
	copy(data[len(previous):], info)
	copy(data, counter[:]) // overwrites the head, matching the original

	m.SetKey(masterKey)

	out := make([]byte, 0, length)
	for len(out) < length {
		out = append(out, m.CalculateMac(data)...)
	}
	return out[:length]
}

package codec

import (
	"chunkvault/internal/core/domain"
	"chunkvault/internal/pkg/crypto/aes"
)

const (
	// Marker is the first byte of every current-format chunk.
	Marker byte = 1
	// HeaderSize is marker plus IV.
	HeaderSize = 1 + aes.IVSize
	// MinCurrentSize is the shortest buffer the marker heuristic accepts as
	// current format: a header and at least one ciphertext byte.
	MinCurrentSize = HeaderSize + 1

	prefixLen = 4
)

func makeChunkHeader(iv []byte) []byte {
	header := make([]byte, 0, HeaderSize)
	header = append(header, Marker)
	return append(header, iv...)
}

func splitChunkHeader(wire []byte) (iv []byte, ciphertext []byte) {
	return wire[1:HeaderSize], wire[HeaderSize:]
}

// Sniff guesses the format of a chunk whose format was not recorded. A
// legacy ciphertext that happens to start with 0x01 is misclassified; record
// the format on the reference to avoid relying on this.
func Sniff(wire []byte) domain.Format {
	if len(wire) >= MinCurrentSize && wire[0] == Marker {
		return domain.FormatCurrent
	}
	return domain.FormatLegacy
}

func leadingBytes(wire []byte) []byte {
	n := len(wire)
	if n > prefixLen {
		n = prefixLen
	}
	out := make([]byte, n)
	copy(out, wire[:n])
	return out
}

package bplist

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/bits"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// readUnsignedBigEndian folds at most 8 bytes, most significant first.
func readUnsignedBigEndian(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// decodeInteger interprets an integer payload. 8-byte payloads are two's
// complement; every other width, 16 bytes included, is an unsigned magnitude.
func decodeInteger(b []byte) Integer {
	switch {
	case len(b) == 8:
		return NewInteger(int64(binary.BigEndian.Uint64(b)))
	case len(b) < 8:
		return NewUnsignedInteger(readUnsignedBigEndian(b))
	}
	return Integer{v: new(big.Int).SetBytes(b)}
}

func decodeReal(b []byte) (float64, bool) {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), true
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), true
	}
	return 0, false
}

// decodeASCII decodes one byte per character. Bytes outside 7-bit ASCII are
// read as ISO-8859-1, which is what CoreFoundation writers put there.
func decodeASCII(b []byte) (string, error) {
	for _, c := range b {
		if c >= 0x80 {
			s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
			return string(s), err
		}
	}
	return string(b), nil
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeUTF16BE decodes big-endian UTF-16. The decoder reads the source
// byte order directly and writes into its own output, so b is never modified.
// Unpaired surrogates become U+FFFD.
func decodeUTF16BE(b []byte) (string, error) {
	s, err := utf16BE.NewDecoder().Bytes(b)
	return string(s), err
}

// saturatingMul returns a*b, or MaxUint64 on overflow.
func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// Package leb128 encodes and decodes the LEB128 integers of the WebAssembly
// binary format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#integers%E2%91%A4
package leb128

import "errors"

const maxVarintLen32 = 5

var (
	errOverflow32 = errors.New("overflows a 32-bit integer")
	errShortInput = errors.New("unexpected end of input")
)

// EncodeInt32 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & 0x7f)
		// Extract the sign bit.
		s := uint8(value & 0x40)
		value >>= 7

		// The encoding unambiguously ends once the remaining value is all sign
		// bits and the sign of b matches it.
		if (value != -1 || s == 0) && (value != 0 || s != 0) {
			b |= 0x80
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			break
		}
	}
	return buf
}

// EncodeUint32 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	// This is effectively a do/while loop where we take 7 bits of the value and encode them until it is zero.
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & 0x7f)
		value = value >> 7

		// If there are remaining bits, the value won't be zero: Set the high-
		// order bit to tell the reader there are more bytes in this uint.
		if value != 0 {
			b |= 0x80
		}

		// Append b into the buffer
		buf = append(buf, b)
		if b&0x80 == 0 {
			return buf
		}
	}
}

// LoadUint32 decodes an unsigned value from the start of buf, returning it
// with the count of bytes read.
func LoadUint32(buf []byte) (ret uint32, bytesRead uint64, err error) {
	var shift uint
	for i := 0; i < maxVarintLen32; i++ {
		if i >= len(buf) {
			return 0, 0, errShortInput
		}
		b := buf[i]
		if i == maxVarintLen32-1 && b&0xf0 != 0 {
			return 0, 0, errOverflow32
		}
		ret |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return ret, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, errOverflow32
}

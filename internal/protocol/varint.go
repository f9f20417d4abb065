// Package protocol implements the Minecraft server list ping wire format:
// VarInt integers, length-prefixed strings, packet framing and an incremental stream reader.
package protocol

import (
	"errors"
	"io"
)

// MaxVarIntLen is the maximum number of bytes a 32-bit VarInt can occupy.
const MaxVarIntLen = 5

// FromInt32 reinterprets the two's-complement bit pattern of v as an unsigned value,
// so negative sentinels like -1 encode as the maximal 5-byte VarInt.
func FromInt32(v int32) uint32 {
	return uint32(v)
}

// AppendVarInt appends the VarInt encoding of value to buf and returns the extended slice.
func AppendVarInt(buf []byte, value uint32) []byte {
	for {
		b := byte(value & 0x7F)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if value == 0 {
			return buf
		}
	}
}

// VarInt returns the VarInt encoding of value. It always returns at least one byte.
func VarInt(value uint32) []byte {
	return AppendVarInt(make([]byte, 0, MaxVarIntLen), value)
}

// VarIntSize returns the number of bytes VarInt(value) occupies.
func VarIntSize(value uint32) int {
	size := 1
	for value >>= 7; value != 0; value >>= 7 {
		size++
	}
	return size
}

// ReadVarInt decodes one VarInt from r, one byte at a time.
// It returns the value and the number of bytes consumed.
// A run of MaxVarIntLen bytes that all carry the continuation bit yields ErrMalformedVarInt
// without reading further, as does a last byte with bits set above the 32nd.
func ReadVarInt(r io.ByteReader) (uint32, int, error) {
	var result uint32
	var numRead int

	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = ErrConnectionClosed
			}
			return 0, numRead, err
		}

		// 5th byte holds bits 28-31 only
		if numRead == MaxVarIntLen-1 && b&0x70 != 0 {
			return 0, numRead + 1, ErrMalformedVarInt
		}

		result |= uint32(b&0x7F) << (7 * numRead)
		numRead++

		if b&0x80 == 0 {
			return result, numRead, nil
		}

		if numRead >= MaxVarIntLen {
			return 0, numRead, ErrMalformedVarInt
		}
	}
}

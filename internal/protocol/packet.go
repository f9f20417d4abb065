package protocol

import (
	"fmt"
	"io"
)

// MaxPacketSize bounds the declared length of an incoming packet.
const MaxPacketSize = 1 << 21

// Concat joins byte chunks into a single newly allocated slice.
func Concat(chunks ...[]byte) []byte {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}

	out := make([]byte, 0, size)
	for _, c := range chunks {
		out = append(out, c...)
	}

	return out
}

// BuildPacket frames payload as VarInt(length) ++ VarInt(id) ++ payload,
// where length counts the id and payload bytes but not itself.
func BuildPacket(id uint32, payload []byte) []byte {
	bodyLen := VarIntSize(id) + len(payload)

	buf := make([]byte, 0, VarIntSize(uint32(bodyLen))+bodyLen)
	buf = AppendVarInt(buf, uint32(bodyLen))
	buf = AppendVarInt(buf, id)

	return append(buf, payload...)
}

// WritePacket frames and writes a packet with a single Write call.
// It returns only after w has accepted every byte or failed.
func WritePacket(w io.Writer, id uint32, payload []byte) error {
	data := BuildPacket(id, payload)

	n, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("write packet 0x%02X: %w", id, err)
	}
	if n != len(data) {
		return fmt.Errorf("write packet 0x%02X: %w", id, io.ErrShortWrite)
	}

	return nil
}

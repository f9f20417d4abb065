package protocol

import "unicode/utf8"

// PackString encodes s as a VarInt byte length followed by its UTF-8 bytes.
func PackString(s string) []byte {
	buf := make([]byte, 0, VarIntSize(uint32(len(s)))+len(s))
	buf = AppendVarInt(buf, uint32(len(s)))
	return append(buf, s...)
}

// ReadString reads exactly byteLength bytes from r and decodes them as UTF-8.
// The caller is responsible for reading the length prefix first.
// Invalid sequences are replaced with utf8.RuneError.
func ReadString(r *Reader, byteLength int) (string, error) {
	data, err := r.ReadExact(byteLength)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(data) {
		return string([]rune(string(data))), nil
	}

	return string(data), nil
}

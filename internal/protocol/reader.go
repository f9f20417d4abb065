package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Reader pulls bytes from a stream exactly as requested.
// It never reads ahead, so bytes the caller did not ask for stay in the socket.
type Reader struct {
	src      io.Reader
	one      [1]byte
	consumed int64
}

// NewReader wraps src. Reads on the returned Reader must not be interleaved with direct reads on src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// ReadExact blocks until exactly n bytes have arrived, across as many underlying reads as needed.
// If the stream ends first it fails with ErrConnectionClosed and returns no data.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: negative length", n)
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(r.src, buf)
	r.consumed += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrConnectionClosed, got, n)
		}
		return nil, err
	}

	return buf, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(r.src, r.one[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrConnectionClosed
		}
		return 0, err
	}
	r.consumed++

	return r.one[0], nil
}

// ReadVarInt decodes one VarInt from the stream.
func (r *Reader) ReadVarInt() (uint32, error) {
	v, _, err := ReadVarInt(r)
	return v, err
}

// Consumed reports the total number of bytes handed to callers so far.
func (r *Reader) Consumed() int64 {
	return r.consumed
}

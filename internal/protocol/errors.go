package protocol

import "errors"

var (
	// ErrConnectionClosed is returned when the peer stops sending before the requested bytes arrive.
	ErrConnectionClosed = errors.New("connection closed before expected bytes arrived")

	// ErrMalformedVarInt is returned when a VarInt continuation run exceeds MaxVarIntLen bytes.
	ErrMalformedVarInt = errors.New("malformed VarInt: longer than 5 bytes")
)

package game

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConnect is returned when the socket could not be opened.
	ErrConnect = errors.New("connect failed")

	// ErrWrite is returned when the socket rejects a write.
	ErrWrite = errors.New("write failed")

	// ErrMalformedResponse is returned when the peer answers with an unexpected packet
	// or a status payload that is not valid JSON of the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTimeout is returned when a connect, read or write exceeds its deadline.
	ErrTimeout = errors.New("timeout")
)

// State is a step of the status exchange.
type State uint8

// Exchange states, in protocol order.
const (
	StateConnecting State = iota
	StateHandshake
	StateRequest
	StateResponse
	StatePing
	StatePong
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshake:
		return "handshake"
	case StateRequest:
		return "request"
	case StateResponse:
		return "response"
	case StatePing:
		return "ping"
	case StatePong:
		return "pong"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// StateError reports the exchange state in which a query failed.
// Use errors.Is with the sentinel errors of this package and of the protocol package.
type StateError struct {
	Err   error
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("status exchange failed during %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// classify maps deadline expiry and context cancellation onto ErrTimeout,
// and tags other failures with kind when one is given.
func classify(ctx context.Context, err error, kind error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, ctxErr)
		}
		return ctxErr
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if kind != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}

	return err
}

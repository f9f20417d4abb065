package game

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/protocol"
)

// Packet ids of the status state.
const (
	PacketHandshake = 0x00
	PacketRequest   = 0x00
	PacketResponse  = 0x00
	PacketPing      = 0x01
	PacketPong      = 0x01
)

const (
	// ProtocolVersionAny tells the server the client does not target a specific version.
	ProtocolVersionAny int32 = -1

	// NextStateStatus asks the server to switch to the status state after the handshake.
	NextStateStatus = 1

	pingPayloadSize = 8
)

// exchange owns one connection for the lifetime of a single status query.
type exchange struct {
	conn    net.Conn
	r       *protocol.Reader
	log     zerolog.Logger
	host    string
	timeout time.Duration
	port    uint16
	state   State
}

// Status performs one server list ping against host:port.
// When ping is set it also measures the round-trip latency with a ping/pong pair.
// timeout bounds connect and every single read or write; zero disables it.
// There is exactly one attempt and the connection is always closed before returning.
func Status(ctx context.Context, host string, port uint16, ping bool, timeout time.Duration) (*models.Status, error) {
	logCtx := log.With().Str("host", host).Uint16("port", port).Logger()
	logCtx.Trace().Stringer("state", StateConnecting).Msg("Connecting")

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, &StateError{State: StateConnecting, Err: classify(dialCtx, err, ErrConnect)}
	}

	e := &exchange{
		conn:    conn,
		r:       protocol.NewReader(conn),
		log:     logCtx,
		host:    host,
		port:    port,
		timeout: timeout,
	}

	return e.run(ctx, ping)
}

func (e *exchange) run(ctx context.Context, ping bool) (*models.Status, error) {
	stop := context.AfterFunc(ctx, func() { _ = e.conn.Close() })
	defer stop()
	defer e.close()

	fail := func(err error, kind error) (*models.Status, error) {
		return nil, &StateError{State: e.state, Err: classify(ctx, err, kind)}
	}

	if err := e.handshake(); err != nil {
		return fail(err, ErrWrite)
	}

	e.enter(StateRequest)
	if err := e.write(PacketRequest, nil); err != nil {
		return fail(err, ErrWrite)
	}

	e.enter(StateResponse)
	st, err := e.readResponse()
	if err != nil {
		return fail(err, nil)
	}

	if !ping {
		return st, nil
	}

	e.enter(StatePing)
	payload := make([]byte, pingPayloadSize)
	if _, err := rand.Read(payload); err != nil {
		return fail(err, nil)
	}

	start := time.Now()
	if err := e.write(PacketPing, payload); err != nil {
		return fail(err, ErrWrite)
	}

	e.enter(StatePong)
	if err := e.readPong(); err != nil {
		return fail(err, nil)
	}

	latency := float64(time.Since(start)) / float64(time.Millisecond)
	st.Ping = &latency
	e.log.Trace().Float64("ping_ms", latency).Msg("Pong received")

	return st, nil
}

func (e *exchange) enter(s State) {
	e.state = s
	e.log.Trace().Stringer("state", s).Msg("Exchange state")
}

// handshake sends protocol version, address, port and next state.
// The address and port are informational for the server.
func (e *exchange) handshake() error {
	e.enter(StateHandshake)

	payload := protocol.Concat(
		protocol.VarInt(protocol.FromInt32(ProtocolVersionAny)),
		protocol.PackString(e.host),
		binary.BigEndian.AppendUint16(nil, e.port),
		protocol.VarInt(NextStateStatus),
	)

	return e.write(PacketHandshake, payload)
}

func (e *exchange) write(id uint32, payload []byte) error {
	if err := e.deadline(); err != nil {
		return err
	}

	return protocol.WritePacket(e.conn, id, payload)
}

// readHeader reads the packet length and id, checks the id
// and returns the length with the reader offset where the id started.
func (e *exchange) readHeader(wantID uint32) (uint32, int64, error) {
	if err := e.deadline(); err != nil {
		return 0, 0, err
	}

	length, err := e.r.ReadVarInt()
	if err != nil {
		return 0, 0, err
	}
	if length > protocol.MaxPacketSize {
		return 0, 0, fmt.Errorf("%w: packet length %d exceeds %d", ErrMalformedResponse, length, protocol.MaxPacketSize)
	}

	start := e.r.Consumed()
	id, err := e.r.ReadVarInt()
	if err != nil {
		return 0, 0, err
	}
	if id != wantID {
		return 0, 0, fmt.Errorf("%w: expected packet 0x%02X, got 0x%02X", ErrMalformedResponse, wantID, id)
	}

	return length, start, nil
}

// checkLength compares the declared packet length with what was actually consumed since start.
func (e *exchange) checkLength(length uint32, start int64) error {
	if got := e.r.Consumed() - start; got != int64(length) {
		return fmt.Errorf("%w: packet declared %d bytes, consumed %d", ErrMalformedResponse, length, got)
	}

	return nil
}

func (e *exchange) readResponse() (*models.Status, error) {
	length, start, err := e.readHeader(PacketResponse)
	if err != nil {
		return nil, err
	}

	strLen, err := e.r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if int64(strLen) > int64(length) {
		return nil, fmt.Errorf("%w: status string of %d bytes in a %d byte packet", ErrMalformedResponse, strLen, length)
	}

	data, err := protocol.ReadString(e.r, int(strLen))
	if err != nil {
		return nil, err
	}

	if err := e.checkLength(length, start); err != nil {
		return nil, err
	}

	return decodeStatus([]byte(data))
}

// requiredStatusFields must be present in every status payload.
var requiredStatusFields = []string{"version", "players", "description"}

// decodeStatus parses the status JSON. The payload must be an object carrying every
// required field; a null or unrelated object is malformed rather than an empty status.
func decodeStatus(data []byte) (*models.Status, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: status payload is null", ErrMalformedResponse)
	}

	for _, name := range requiredStatusFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return nil, fmt.Errorf("%w: status payload has no %q", ErrMalformedResponse, name)
		}
	}

	var st models.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return &st, nil
}

// readPong consumes the echoed ping payload. Its contents are not compared with what was sent.
func (e *exchange) readPong() error {
	length, start, err := e.readHeader(PacketPong)
	if err != nil {
		return err
	}

	if _, err := e.r.ReadExact(pingPayloadSize); err != nil {
		return err
	}

	return e.checkLength(length, start)
}

func (e *exchange) deadline() error {
	if e.timeout <= 0 {
		return nil
	}

	return e.conn.SetDeadline(time.Now().Add(e.timeout))
}

// close half-closes the write side when supported, then releases the socket.
func (e *exchange) close() {
	if cw, ok := e.conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			e.log.Trace().Err(err).Msg("Half-close failed")
		}
	}

	if err := e.conn.Close(); err != nil {
		e.log.Trace().Err(err).Msg("Close failed")
	}

	e.state = StateClosed
	e.log.Trace().Stringer("state", StateClosed).Msg("Exchange state")
}

package game

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/protocol"
)

func TestQueryServerSLP(t *testing.T) {
	port, _ := startPeer(t, func(conn net.Conn, r *protocol.Reader) error {
		if _, err := readStatusRequest(r); err != nil {
			return err
		}
		return writeResponse(conn, `{"version":{"name":"Paper 1.21","protocol":767},"players":{"max":100,"online":1,"sample":[{"name":"Notch","id":"069a79f4-44e9-4726-a5be-fca90e38aaf5"}]},"description":"Hello","favicon":"data:image/png;base64,AAAA"}`)
	})

	st, err := QueryServer(context.Background(), "127.0.0.1", int(port), false, config.Query{Kind: config.KindSLP, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("QueryServer: %v", err)
	}
	if len(st.Players.Sample) != 1 || st.Players.Sample[0].Name != "Notch" {
		t.Errorf("Players.Sample = %+v", st.Players.Sample)
	}
	if st.Description.Text != "Hello" {
		t.Errorf("Description = %+v, want Hello", st.Description)
	}
	if st.Favicon == "" {
		t.Error("Favicon is empty, want the retrieved icon")
	}
}

func TestQueryServerInvalid(t *testing.T) {
	if _, err := QueryServer(context.Background(), "127.0.0.1", 0, false, config.Query{}); err == nil {
		t.Error("QueryServer(port 0) succeeded, want error")
	}
	if _, err := QueryServer(context.Background(), "127.0.0.1", 25565, false, config.Query{Kind: "gopher"}); err == nil {
		t.Error("QueryServer(kind gopher) succeeded, want error")
	}
}

var a2sInfoRequest = append([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x54}, "Source Engine Query\x00"...)

// a2sInfoResponse is a Source A2S_INFO reply without extra data fields.
func a2sInfoResponse() []byte {
	cstr := func(s string) []byte { return append([]byte(s), 0) }

	b := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x49, 17}
	b = append(b, cstr("Test Server")...)
	b = append(b, cstr("chernarusplus")...)
	b = append(b, cstr("dayz")...)
	b = append(b, cstr("DayZ")...)
	b = binary.LittleEndian.AppendUint16(b, 0)
	// players, max players, bots, dedicated, linux, public, VAC
	b = append(b, 7, 60, 0, 'd', 'l', 0, 1)
	b = append(b, cstr("1.26")...)
	return append(b, 0)
}

// startA2SPeer answers A2S_INFO on a local UDP port, first issuing a challenge when challenge is non-zero.
func startA2SPeer(t *testing.T, challenge uint32) int {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	go func() {
		buf := make([]byte, 1400)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			req := buf[:n]
			if !bytes.HasPrefix(req, a2sInfoRequest) {
				t.Errorf("unexpected A2S request % X", req)
				return
			}

			if challenge != 0 && len(req) == len(a2sInfoRequest) {
				reply := binary.BigEndian.AppendUint32([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x41}, challenge)
				_, _ = pc.WriteTo(reply, addr)
				continue
			}
			if challenge != 0 && binary.BigEndian.Uint32(req[len(a2sInfoRequest):]) != challenge {
				t.Errorf("challenge not echoed: % X", req)
				return
			}

			_, _ = pc.WriteTo(a2sInfoResponse(), addr)
		}
	}()

	return pc.LocalAddr().(*net.UDPAddr).Port
}

func TestQueryServerA2S(t *testing.T) {
	for _, challenge := range []uint32{0, 0xDEADBEEF} {
		port := startA2SPeer(t, challenge)

		opts := config.Query{Kind: config.KindA2S, Timeout: 2 * time.Second, BufferSize: 1400}
		st, err := QueryServer(context.Background(), "127.0.0.1", port, true, opts)
		if err != nil {
			t.Fatalf("QueryServer(challenge %X): %v", challenge, err)
		}

		if st.Description.String() != "Test Server (DayZ, chernarusplus)" {
			t.Errorf("Description = %q", st.Description.String())
		}
		if st.Version.Name != "1.26" || st.Version.Protocol != 17 {
			t.Errorf("Version = %+v", st.Version)
		}
		if st.Players.Online != 7 || st.Players.Max != 60 {
			t.Errorf("Players = %+v", st.Players)
		}
		if st.Ping == nil || *st.Ping < 0 {
			t.Errorf("Ping = %v, want measured latency", st.Ping)
		}
	}
}

func TestQueryServerA2SWithoutPing(t *testing.T) {
	port := startA2SPeer(t, 0)

	st, err := QueryServer(context.Background(), "127.0.0.1", port, false, config.Query{Kind: config.KindA2S, Timeout: 2 * time.Second, BufferSize: 1400})
	if err != nil {
		t.Fatalf("QueryServer: %v", err)
	}
	if st.Ping != nil {
		t.Errorf("Ping = %v, want nil", *st.Ping)
	}
}

func TestQueryServerA2STimeout(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer func() { _ = pc.Close() }()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	opts := config.Query{Kind: config.KindA2S, Timeout: 100 * time.Millisecond, BufferSize: 1400}
	if _, err := QueryServer(context.Background(), "127.0.0.1", port, false, opts); !errors.Is(err, ErrTimeout) {
		t.Errorf("QueryServer error = %v, want ErrTimeout", err)
	}
}

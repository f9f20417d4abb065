// Package game queries game servers for their status:
// the Minecraft server list ping over TCP and the Source engine A2S_INFO query over UDP.
package game

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/models"
)

// QueryServer requests the status of host:port using the protocol selected by options.Kind.
// It returns the parsed status or an error if the server is unreachable or answers badly.
func QueryServer(ctx context.Context, host string, port int, ping bool, options config.Query) (*models.Status, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range 1-65535", port)
	}

	switch options.Kind {
	case config.KindA2S:
		return queryA2S(ctx, host, port, ping, options)
	case config.KindSLP, "":
		return Status(ctx, host, uint16(port), ping, options.Timeout)
	default:
		return nil, fmt.Errorf("unknown query kind %q", options.Kind)
	}
}

// queryA2S connects to a Source engine server via UDP and maps A2S_INFO onto a status.
// With ping set, the latency is the duration of the info round-trip.
func queryA2S(ctx context.Context, host string, port int, ping bool, options config.Query) (*models.Status, error) {
	client, err := a2s.NewWithString(net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()
	defer func() { _ = client.Close() }()

	client.BufferSize = options.BufferSize
	client.Timeout = options.Timeout

	start := time.Now()
	info, err := client.GetInfo()
	if err != nil {
		return nil, classify(ctx, err, nil)
	}
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	st := &models.Status{
		Version: models.Version{
			Name:     info.Version,
			Protocol: int(info.Protocol),
		},
		Players: models.Players{
			Max:    int(info.MaxPlayers),
			Online: int(info.Players),
		},
		Description: models.Chat{
			Text: info.Name,
			Extra: []models.Chat{
				{Text: " (" + info.Game + ", " + info.Map + ")"},
			},
		},
	}
	if ping {
		st.Ping = &elapsed
	}

	return st, nil
}

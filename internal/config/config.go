// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/mcstatus/internal/logger"
	"github.com/woozymasta/mcstatus/internal/vars"
)

// Query kinds
const (
	// KindSLP is the Minecraft Java server list ping over TCP
	KindSLP = "slp"

	// KindA2S is the Source engine A2S_INFO query over UDP
	KindA2S = "a2s"
)

// Positional argument defaults
const (
	DefaultPort = 25565
	DefaultHost = "127.0.0.1"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Query     Query         `group:"Query Options" env-namespace:"MCSTATUS"`
	Server    Server        `group:"HTTP Options" namespace:"http" env-namespace:"MCSTATUS_HTTP"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"MCSTATUS_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"MCSTATUS_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"MCSTATUS_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"MCSTATUS_LOG"`

	Args Args `positional-args:"yes"`

	// Target is resolved from Args by Parse
	Target Target `no-flag:"true"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Args are the optional positional arguments, in order.
type Args struct {
	Port string `positional-arg-name:"port" description:"Server port (default 25565)"`
	Host string `positional-arg-name:"host" description:"Server host (default 127.0.0.1)"`
	Ping string `positional-arg-name:"ping" description:"Measure latency when 'true' or '1' (default true)"`
}

// Target is a resolved query destination.
type Target struct {
	Host string
	Port int
	Ping bool
}

// Query holds status query options.
type Query struct {
	// betteralign:ignore

	Kind       string        `short:"k" long:"kind" env:"KIND" description:"Query protocol" choice:"slp" choice:"a2s" default:"slp"`
	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Timeout for connect and each read or write, 0 disables" default:"5s"`
	BufferSize uint16        `long:"a2s-buffer-size" env:"A2S_BUFFER_SIZE" description:"A2S response body buffer size" default:"1400"`
}

// Server holds HTTP API configuration.
type Server struct {
	// betteralign:ignore

	Address      string   `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Serve the HTTP API on this address instead of running a single query"`
	AuthToken    string   `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token for history endpoints"`
	AllowedHosts []string `long:"allowed-host" env:"ALLOWED_HOSTS" description:"Hosts the live status endpoint may query (all when empty)" env-delim:","`
	TrustProxy   bool     `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds query history configuration.
type Storage struct {
	// betteralign:ignore

	Path         string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite history database, empty disables history"`
	Record       bool          `long:"record" env:"RECORD" description:"Record query results to history"`
	Recheck      bool          `long:"recheck" description:"Re-query every server in history and exit"`
	RecheckRate  float64       `long:"recheck-rate" env:"RECHECK_RATE" description:"Queries per second during recheck" default:"20"`
	PruneOffline time.Duration `long:"prune-offline" description:"Delete servers not online for this long and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"MMDB download timeout" default:"30s"`
}

// RateLimit holds HTTP API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args without touching the process state.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"
	parser.Usage = "[OPTIONS] [port] [host] [ping]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	target, err := ParseTarget(cfg.Args)
	if err != nil {
		return nil, err
	}
	cfg.Target = target

	if cfg.Storage.Record && cfg.Storage.Path == "" {
		return nil, fmt.Errorf("--db-record requires --db-path")
	}
	if (cfg.Storage.Recheck || cfg.Storage.PruneOffline > 0) && cfg.Storage.Path == "" {
		return nil, fmt.Errorf("history maintenance requires --db-path")
	}

	return &cfg, nil
}

// ParseTarget applies defaults to the positional arguments and validates them.
func ParseTarget(args Args) (Target, error) {
	t := Target{
		Host: DefaultHost,
		Port: DefaultPort,
		Ping: true,
	}

	if args.Port != "" {
		port, err := strconv.Atoi(args.Port)
		if err != nil {
			return t, fmt.Errorf("invalid port %q: %w", args.Port, err)
		}
		if port < 1 || port > 65535 {
			return t, fmt.Errorf("port %d out of range 1-65535", port)
		}
		t.Port = port
	}

	if args.Host != "" {
		t.Host = args.Host
	}

	if args.Ping != "" {
		t.Ping = ParsePing(args.Ping)
	}

	return t, nil
}

// ParsePing reports whether s enables latency measurement: only "true" and "1" do.
func ParsePing(s string) bool {
	return s == "true" || s == "1"
}

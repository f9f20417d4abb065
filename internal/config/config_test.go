package config

import (
	"testing"
	"time"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name string
		args Args
		want Target
	}{
		{"defaults", Args{}, Target{Host: "127.0.0.1", Port: 25565, Ping: true}},
		{"port_only", Args{Port: "25566"}, Target{Host: "127.0.0.1", Port: 25566, Ping: true}},
		{"host", Args{Port: "25565", Host: "mc.example.org"}, Target{Host: "mc.example.org", Port: 25565, Ping: true}},
		{"ping_true", Args{Port: "1", Host: "h", Ping: "true"}, Target{Host: "h", Port: 1, Ping: true}},
		{"ping_one", Args{Port: "1", Host: "h", Ping: "1"}, Target{Host: "h", Port: 1, Ping: true}},
		{"ping_false", Args{Port: "1", Host: "h", Ping: "false"}, Target{Host: "h", Port: 1, Ping: false}},
		{"ping_yes", Args{Port: "1", Host: "h", Ping: "yes"}, Target{Host: "h", Port: 1, Ping: false}},
		{"ping_upper", Args{Port: "1", Host: "h", Ping: "TRUE"}, Target{Host: "h", Port: 1, Ping: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.args)
			if err != nil {
				t.Fatalf("ParseTarget(%+v): %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%+v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseTargetInvalidPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "65536", "-1"} {
		if _, err := ParseTarget(Args{Port: port}); err == nil {
			t.Errorf("ParseTarget(port %q) succeeded, want error", port)
		}
	}
}

func TestParseArgs(t *testing.T) {
	cfg, err := ParseArgs([]string{"--timeout", "2s", "--log-level", "debug", "25570", "example.org", "0"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	want := Target{Host: "example.org", Port: 25570, Ping: false}
	if cfg.Target != want {
		t.Errorf("Target = %+v, want %+v", cfg.Target, want)
	}
	if cfg.Query.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Query.Timeout)
	}
	if cfg.Query.Kind != KindSLP {
		t.Errorf("Kind = %q, want %q", cfg.Query.Kind, KindSLP)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
}

func TestParseArgsStorageRequiresPath(t *testing.T) {
	if _, err := ParseArgs([]string{"--db-record"}); err == nil {
		t.Error("ParseArgs(--db-record) succeeded without --db-path")
	}
	if _, err := ParseArgs([]string{"--db-recheck"}); err == nil {
		t.Error("ParseArgs(--db-recheck) succeeded without --db-path")
	}
	if _, err := ParseArgs([]string{"--db-path", "h.db", "--db-record"}); err != nil {
		t.Errorf("ParseArgs(--db-path h.db --db-record): %v", err)
	}
}

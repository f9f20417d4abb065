package geoip

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Minimal MaxMind DB encoder for tests: maps, short strings and small unsigned ints.

func mmdbString(s string) []byte {
	return append([]byte{0x40 | byte(len(s))}, s...)
}

func mmdbUint(typeBits byte, v uint32) []byte {
	var b []byte
	for ; v != 0; v >>= 8 {
		b = append([]byte{byte(v)}, b...)
	}
	return append([]byte{typeBits | byte(len(b))}, b...)
}

func mmdbMap(pairs ...[]byte) []byte {
	out := []byte{0xE0 | byte(len(pairs)/2)}
	return append(out, bytes.Join(pairs, nil)...)
}

// countryDB returns an IPv4 GeoLite2-Country database where prefix.0.0.0/8 resolves to iso
// and every other address has no record.
func countryDB(prefix byte, iso string) []byte {
	const nodeCount = 8

	var tree []byte
	for i := 0; i < nodeCount; i++ {
		next := uint32(i + 1)
		if i == nodeCount-1 {
			// data section offset 0
			next = nodeCount + 16
		}

		left, right := uint32(nodeCount), uint32(nodeCount)
		if prefix>>(7-i)&1 == 0 {
			left = next
		} else {
			right = next
		}
		tree = append(tree,
			byte(left>>16), byte(left>>8), byte(left),
			byte(right>>16), byte(right>>8), byte(right),
		)
	}

	data := mmdbMap(
		mmdbString("country"), mmdbMap(mmdbString("iso_code"), mmdbString(iso)),
	)

	const uint16Type, uint32Type = 0xA0, 0xC0
	meta := mmdbMap(
		mmdbString("binary_format_major_version"), mmdbUint(uint16Type, 2),
		mmdbString("binary_format_minor_version"), mmdbUint(uint16Type, 0),
		mmdbString("database_type"), mmdbString("GeoLite2-Country"),
		mmdbString("ip_version"), mmdbUint(uint16Type, 4),
		mmdbString("node_count"), mmdbUint(uint32Type, nodeCount),
		mmdbString("record_size"), mmdbUint(uint16Type, 24),
	)

	out := append(tree, make([]byte, 16)...)
	out = append(out, data...)
	out = append(out, "\xAB\xCD\xEFMaxMind.com"...)
	return append(out, meta...)
}

func writeCountryDB(t *testing.T, prefix byte, iso string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "country.mmdb")
	if err := os.WriteFile(path, countryDB(prefix, iso), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

package geoip

import (
	"context"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// Provider wraps the GeoIP2 database reader to provide country lookup functionality.
type Provider struct {
	db       *geoip2.Reader
	resolver *net.Resolver
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db, resolver: net.DefaultResolver}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// GetCountryCode looks up the ISO country code (e.g., "US", "DE") for a given IP address string.
// It returns an empty string if the IP is invalid or the country cannot be determined.
func (p *Provider) GetCountryCode(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// LookupHost resolves host when it is a name and returns the country code of its first address.
// A nil provider or a failed lookup yields an empty string.
func (p *Provider) LookupHost(ctx context.Context, host string) string {
	if p == nil {
		return ""
	}
	if net.ParseIP(host) != nil {
		return p.GetCountryCode(host)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	addrs, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return ""
	}

	return p.GetCountryCode(addrs[0].IP.String())
}

// Package models defines the status structures returned by queries and the records persisted to history.
package models

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Status is the server list ping response payload.
// Ping is measured locally after the fact and is never part of the wire payload.
type Status struct {
	Version     Version  `json:"version"`
	Players     Players  `json:"players"`
	Description Chat     `json:"description"`
	Favicon     string   `json:"favicon,omitempty"`
	Ping        *float64 `json:"ping,omitempty"`
}

// Version describes the server software.
type Version struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// Players holds player counts and an optional sample of online players.
type Players struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []PlayerSample `json:"sample,omitempty"`
}

// PlayerSample is one entry of the online players sample.
type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Stripped returns a shallow copy of s without the favicon.
func (s *Status) Stripped() *Status {
	out := *s
	out.Favicon = ""
	return &out
}

// Record is one tracked server in the query history.
type Record struct {
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	LastOnline    time.Time `json:"last_online"`
	Host          string    `json:"host"`
	Kind          string    `json:"kind"`
	CountryCode   string    `json:"country_code"`
	VersionName   string    `json:"version_name"`
	Description   string    `json:"description"`
	FaviconHash   string    `json:"favicon_hash"`
	LatencyMS     float64   `json:"latency_ms"`
	Count         int64     `json:"count"`
	Port          int       `json:"port"`
	Protocol      int       `json:"protocol"`
	PlayersOnline int       `json:"players_online"`
	PlayersMax    int       `json:"players_max"`
	Online        bool      `json:"online"`
}

// NewRecord builds a history record from a query result.
// A nil status produces an offline record that keeps only the address.
func NewRecord(host string, port int, kind string, st *Status, now time.Time) Record {
	r := Record{
		Host:      host,
		Port:      port,
		Kind:      kind,
		FirstSeen: now,
		LastSeen:  now,
	}
	if st == nil {
		return r
	}

	r.Online = true
	r.LastOnline = now
	r.VersionName = st.Version.Name
	r.Protocol = st.Version.Protocol
	r.Description = st.Description.String()
	r.PlayersOnline = st.Players.Online
	r.PlayersMax = st.Players.Max
	r.FaviconHash = FaviconHash(st.Favicon)
	if st.Ping != nil {
		r.LatencyMS = *st.Ping
	}

	return r
}

// FaviconHash fingerprints a favicon data URI so history can detect icon changes
// without storing the image. It returns an empty string for an empty favicon.
func FaviconHash(favicon string) string {
	if favicon == "" {
		return ""
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(favicon))
}

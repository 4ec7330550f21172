// Package agent implements the field client: it watches a position source,
// accrues traveled distance with noise filtering, batches samples and syncs
// them to the tracking API, surviving process restarts through a durable
// state file.
package agent

import (
	"context"
	"time"
)

// Position is one reading from a position source.
type Position struct {
	Latitude   float64
	Longitude  float64
	AccuracyM  float64
	SpeedMS    *float64
	HeadingDeg *float64
	Timestamp  time.Time
}

// PositionSource delivers positions until the context is cancelled, then
// closes the channel. Implementations wrap whatever the platform offers
// (gpsd, a serial NMEA feed, or the simulated walker for local runs).
type PositionSource interface {
	Watch(ctx context.Context) (<-chan Position, error)
}

// EnvironmentProbe exposes device connectivity and battery state. It is
// injected rather than read from process globals so tests can control it.
type EnvironmentProbe interface {
	IsOnline() bool
	BatteryLevel() *int
}

// StaticProbe is a fixed-value probe.
type StaticProbe struct {
	Online  bool
	Battery *int
}

func (p StaticProbe) IsOnline() bool     { return p.Online }
func (p StaticProbe) BatteryLevel() *int { return p.Battery }

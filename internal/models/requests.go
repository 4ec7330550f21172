package models

import (
	"errors"
	"math"
	"time"
)

var (
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
	ErrInvalidCoordinates = errors.New("invalid lat/lng")
)

// SamplePayload is one client-submitted location. Latitude and longitude are
// pointers so a missing field can be told apart from a zero value.
type SamplePayload struct {
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	Accuracy      *float64   `json:"accuracy,omitempty"`
	Speed         *float64   `json:"speed,omitempty"`
	Heading       *float64   `json:"heading,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	BatteryLevel  *int       `json:"battery_level,omitempty"`
	NetworkStatus string     `json:"network_status,omitempty"`
}

// Validate checks that the payload carries usable coordinates.
func (p *SamplePayload) Validate() error {
	if p.Latitude == nil || p.Longitude == nil {
		return ErrMissingCoordinates
	}
	if math.Abs(*p.Latitude) > 90 || math.Abs(*p.Longitude) > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// ToSample converts the payload into a ledger row for the given owner.
// A missing timestamp is assigned at ingest time.
func (p *SamplePayload) ToSample(ownerID string, now time.Time) LocationSample {
	ts := now
	if p.Timestamp != nil {
		ts = *p.Timestamp
	}
	network := p.NetworkStatus
	if network == "" {
		network = NetworkStatusUnknown
	}
	return LocationSample{
		OwnerID:       ownerID,
		Latitude:      *p.Latitude,
		Longitude:     *p.Longitude,
		Accuracy:      p.Accuracy,
		Speed:         p.Speed,
		Heading:       p.Heading,
		Timestamp:     ts,
		BatteryLevel:  p.BatteryLevel,
		NetworkStatus: network,
		CreatedAt:     now,
	}
}

// IngestRequest is the body of POST /api/tracking/locations.
type IngestRequest struct {
	Locations []SamplePayload `json:"locations"`
}

// StopRequest is the body of POST /api/tracking/stop. The reported distance
// is trusted and overwrites the session total.
type StopRequest struct {
	Distance float64 `json:"distance"`
}

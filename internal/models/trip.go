package models

import "time"

// RoutePoint is one point of a reconstructed session route.
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty"`
}

// Stop is a derived cluster of consecutive low-speed samples lasting at least
// a minute, summarized by its centroid and duration. Stops are computed on
// demand and never persisted.
type Stop struct {
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// MovementStats summarizes the moving/stationary split of a route.
type MovementStats struct {
	MovingPercent     float64 `json:"moving_percent"`
	StationaryPercent float64 `json:"stationary_percent"`
	AvgSpeedKmh       float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh       float64 `json:"max_speed_kmh"`
}

// SessionSummary is a session enriched with derived endpoints and movement
// stats for history listings.
type SessionSummary struct {
	TrackingSession
	StartLocation *Location     `json:"start_location,omitempty"`
	EndLocation   *Location     `json:"end_location,omitempty"`
	Movement      MovementStats `json:"movement"`
}

// SessionDetail is the full reconstruction of one session.
type SessionDetail struct {
	Session  TrackingSession `json:"session"`
	Route    []RoutePoint    `json:"route"`
	Stops    []Stop          `json:"stops"`
	Movement MovementStats   `json:"movement"`
}

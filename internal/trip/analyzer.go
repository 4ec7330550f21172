// Package trip reconstructs a tracking session's route from raw ledger
// samples and derives movement statistics and stop clusters. It performs no
// writes; everything here is computed fresh per query.
package trip

import (
	"math"
	"time"

	"github.com/loctrack/field-tracker/internal/models"
)

const (
	// StationarySpeedThreshold classifies a sample as stationary when its
	// reported speed is below this, or when no speed was reported at all.
	StationarySpeedThreshold = 0.5 // m/s

	// MinStopDuration is the minimum time a stationary cluster must span to
	// count as a stop.
	MinStopDuration = 60 * time.Second

	mpsToKmh = 3.6
)

// Analysis is the result of analyzing one session's samples.
type Analysis struct {
	Route    []models.RoutePoint
	Stops    []models.Stop
	Movement models.MovementStats
}

// Analyze takes a session's samples ordered by timestamp ascending and
// reconstructs the route, the moving/stationary split and the stop clusters.
// An empty input yields an empty route and no stops.
func Analyze(samples []models.LocationSample) Analysis {
	route := make([]models.RoutePoint, 0, len(samples))
	for _, s := range samples {
		point := models.RoutePoint{
			Lat:       s.Latitude,
			Lng:       s.Longitude,
			Timestamp: s.Timestamp,
		}
		if s.Speed != nil {
			kmh := *s.Speed * mpsToKmh
			point.SpeedKmh = &kmh
		}
		route = append(route, point)
	}

	return Analysis{
		Route:    route,
		Stops:    segmentStops(samples),
		Movement: movementStats(samples),
	}
}

// Summarize derives the endpoints and movement stats for a session listing
// without building the full route.
func Summarize(samples []models.LocationSample) (start, end *models.Location, stats models.MovementStats) {
	if len(samples) > 0 {
		first := samples[0]
		last := samples[len(samples)-1]
		start = &models.Location{Lat: first.Latitude, Lng: first.Longitude}
		end = &models.Location{Lat: last.Latitude, Lng: last.Longitude}
	}
	return start, end, movementStats(samples)
}

func isStationary(s models.LocationSample) bool {
	return s.Speed == nil || *s.Speed < StationarySpeedThreshold
}

func movementStats(samples []models.LocationSample) models.MovementStats {
	var stationary int
	var movingSpeedSum float64
	var movingCount int
	var maxSpeed float64
	for _, s := range samples {
		if isStationary(s) {
			stationary++
		} else {
			movingSpeedSum += *s.Speed
			movingCount++
		}
		if s.Speed != nil && *s.Speed > maxSpeed {
			maxSpeed = *s.Speed
		}
	}

	stats := models.MovementStats{MaxSpeedKmh: maxSpeed * mpsToKmh}
	if len(samples) > 0 {
		stats.StationaryPercent = float64(stationary) / float64(len(samples)) * 100
	}
	stats.MovingPercent = 100 - stats.StationaryPercent
	if movingCount > 0 {
		stats.AvgSpeedKmh = movingSpeedSum / float64(movingCount) * mpsToKmh
	}
	return stats
}

// candidate is an open stationary cluster during segmentation.
type candidate struct {
	latSum, lngSum float64
	count          int
	start, end     time.Time
}

func (c *candidate) add(s models.LocationSample) {
	if c.count == 0 {
		c.start = s.Timestamp
	}
	c.latSum += s.Latitude
	c.lngSum += s.Longitude
	c.count++
	c.end = s.Timestamp
}

// close evaluates the candidate against the minimum duration and returns the
// emitted stop, if any. A single isolated stationary sample has zero duration
// and is always discarded.
func (c *candidate) close() (models.Stop, bool) {
	duration := c.end.Sub(c.start)
	if c.count == 0 || duration < MinStopDuration {
		return models.Stop{}, false
	}
	return models.Stop{
		Lat:             c.latSum / float64(c.count),
		Lng:             c.lngSum / float64(c.count),
		StartTime:       c.start,
		EndTime:         c.end,
		DurationMinutes: int(math.Round(duration.Minutes())),
	}, true
}

// segmentStops walks the ordered route once, clustering consecutive
// stationary samples and emitting clusters that last at least MinStopDuration.
func segmentStops(samples []models.LocationSample) []models.Stop {
	stops := []models.Stop{}
	var current candidate
	for _, s := range samples {
		if isStationary(s) {
			current.add(s)
			continue
		}
		if stop, ok := current.close(); ok {
			stops = append(stops, stop)
		}
		current = candidate{}
	}
	// trailing open cluster at end of route
	if stop, ok := current.close(); ok {
		stops = append(stops, stop)
	}
	return stops
}

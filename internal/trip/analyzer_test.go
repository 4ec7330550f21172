package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loctrack/field-tracker/internal/models"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func sample(offset time.Duration, lat, lng float64, speed *float64) models.LocationSample {
	return models.LocationSample{
		Latitude:  lat,
		Longitude: lng,
		Speed:     speed,
		Timestamp: base.Add(offset),
	}
}

func TestAnalyze_Empty(t *testing.T) {
	analysis := Analyze(nil)

	assert.Empty(t, analysis.Route)
	assert.NotNil(t, analysis.Stops)
	assert.Empty(t, analysis.Stops)
	assert.Equal(t, 0.0, analysis.Movement.StationaryPercent)
	assert.Equal(t, 100.0, analysis.Movement.MovingPercent)
	assert.Equal(t, 0.0, analysis.Movement.AvgSpeedKmh)
	assert.Equal(t, 0.0, analysis.Movement.MaxSpeedKmh)
}

func TestAnalyze_RouteSpeedConversion(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.5, -0.12, f64(2.0)),
		sample(10*time.Second, 51.501, -0.12, nil),
	}

	analysis := Analyze(samples)
	assert.Len(t, analysis.Route, 2)
	assert.InDelta(t, 7.2, *analysis.Route[0].SpeedKmh, 1e-9) // 2.0 m/s
	assert.Nil(t, analysis.Route[1].SpeedKmh)
	assert.Equal(t, samples[0].Timestamp, analysis.Route[0].Timestamp)
}

func TestMovementStats(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.5, -0.12, nil),                     // stationary, no speed
		sample(10*time.Second, 51.5, -0.12, f64(0.3)),   // stationary, below threshold
		sample(20*time.Second, 51.501, -0.12, f64(2.0)), // moving
		sample(30*time.Second, 51.502, -0.12, f64(4.0)), // moving
	}

	stats := Analyze(samples).Movement
	assert.Equal(t, 50.0, stats.StationaryPercent)
	assert.Equal(t, 50.0, stats.MovingPercent)
	// Average over moving samples only: (2.0+4.0)/2 * 3.6
	assert.InDelta(t, 10.8, stats.AvgSpeedKmh, 1e-9)
	// Maximum over all samples
	assert.InDelta(t, 14.4, stats.MaxSpeedKmh, 1e-9)
}

func TestMovementStats_AllStationary(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.5, -0.12, nil),
		sample(30*time.Second, 51.5, -0.12, f64(0.1)),
	}

	stats := Analyze(samples).Movement
	assert.Equal(t, 100.0, stats.StationaryPercent)
	assert.Equal(t, 0.0, stats.MovingPercent)
	assert.Equal(t, 0.0, stats.AvgSpeedKmh)
}

func TestSegmentStops_ClusterAboveMinimum(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.500, -0.120, f64(0.1)),
		sample(45*time.Second, 51.501, -0.121, f64(0.2)),
		sample(90*time.Second, 51.502, -0.122, nil),
		sample(100*time.Second, 51.510, -0.130, f64(2.0)),
	}

	stops := Analyze(samples).Stops
	assert.Len(t, stops, 1)

	stop := stops[0]
	// Centroid of the three stationary samples
	assert.InDelta(t, 51.501, stop.Lat, 1e-9)
	assert.InDelta(t, -0.121, stop.Lng, 1e-9)
	assert.Equal(t, base, stop.StartTime)
	assert.Equal(t, base.Add(90*time.Second), stop.EndTime)
	// 90 seconds rounds to 2 minutes
	assert.Equal(t, 2, stop.DurationMinutes)
}

func TestSegmentStops_BelowMinimumDiscarded(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.5, -0.12, f64(0.1)),
		sample(59*time.Second, 51.5, -0.12, f64(0.1)),
		sample(70*time.Second, 51.51, -0.13, f64(2.0)),
	}

	stops := Analyze(samples).Stops
	assert.Empty(t, stops)
}

func TestSegmentStops_ExactMinimum(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.5, -0.12, f64(0.1)),
		sample(60*time.Second, 51.5, -0.12, f64(0.1)),
		sample(70*time.Second, 51.51, -0.13, f64(2.0)),
	}

	stops := Analyze(samples).Stops
	assert.Len(t, stops, 1)
	assert.Equal(t, 1, stops[0].DurationMinutes)
}

func TestSegmentStops_TrailingCluster(t *testing.T) {
	// A stationary cluster at the end of the route still counts.
	samples := []models.LocationSample{
		sample(0, 51.51, -0.13, f64(2.0)),
		sample(10*time.Second, 51.5, -0.12, f64(0.1)),
		sample(130*time.Second, 51.5, -0.12, nil),
	}

	stops := Analyze(samples).Stops
	assert.Len(t, stops, 1)
	assert.Equal(t, 2, stops[0].DurationMinutes)
}

func TestSegmentStops_IsolatedSampleDiscarded(t *testing.T) {
	// A single stationary sample spans zero time.
	samples := []models.LocationSample{
		sample(0, 51.51, -0.13, f64(2.0)),
		sample(10*time.Second, 51.5, -0.12, f64(0.1)),
		sample(20*time.Second, 51.52, -0.14, f64(2.0)),
	}

	stops := Analyze(samples).Stops
	assert.Empty(t, stops)
}

func TestSegmentStops_MultipleClusters(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.50, -0.12, f64(0.1)),
		sample(90*time.Second, 51.50, -0.12, f64(0.1)),
		sample(100*time.Second, 51.51, -0.13, f64(2.0)),
		sample(110*time.Second, 51.52, -0.14, f64(0.2)),
		sample(230*time.Second, 51.52, -0.14, f64(0.2)),
	}

	stops := Analyze(samples).Stops
	assert.Len(t, stops, 2)
	assert.Equal(t, 2, stops[0].DurationMinutes)
	assert.Equal(t, 2, stops[1].DurationMinutes)
}

func TestSummarize(t *testing.T) {
	samples := []models.LocationSample{
		sample(0, 51.50, -0.12, f64(2.0)),
		sample(30*time.Second, 51.51, -0.13, f64(0.1)),
		sample(60*time.Second, 51.52, -0.14, f64(2.0)),
	}

	start, end, stats := Summarize(samples)
	assert.Equal(t, &models.Location{Lat: 51.50, Lng: -0.12}, start)
	assert.Equal(t, &models.Location{Lat: 51.52, Lng: -0.14}, end)
	assert.InDelta(t, 33.33, stats.StationaryPercent, 0.01)
}

func TestSummarize_Empty(t *testing.T) {
	start, end, stats := Summarize(nil)
	assert.Nil(t, start)
	assert.Nil(t, end)
	assert.Equal(t, 100.0, stats.MovingPercent)
}

package agent

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/loctrack/field-tracker/internal/models"
)

// SimulatedSource walks around a base point at a walking pace, alternating
// moving and stationary phases. It stands in for a real GPS during local
// runs and demos.
type SimulatedSource struct {
	Base     models.Location
	Interval time.Duration
}

// Watch emits positions until the context is cancelled.
func (s *SimulatedSource) Watch(ctx context.Context) (<-chan Position, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ch := make(chan Position)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		pos := s.Base
		moving := true
		stepsLeft := 10 + rand.Intn(20)
		const walkingSpeed = 1.5 // m/s

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stepsLeft--
				if stepsLeft <= 0 {
					moving = !moving
					stepsLeft = 10 + rand.Intn(30)
				}

				speed := 0.0
				if moving {
					pos = stepFrom(pos, walkingSpeed*interval.Seconds())
					speed = walkingSpeed
				}
				accuracy := 5 + rand.Float64()*20
				heading := rand.Float64() * 360

				p := Position{
					Latitude:   pos.Lat,
					Longitude:  pos.Lng,
					AccuracyM:  accuracy,
					SpeedMS:    &speed,
					HeadingDeg: &heading,
					Timestamp:  time.Now().UTC(),
				}
				select {
				case ch <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// stepFrom moves the given number of meters in a random direction.
func stepFrom(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	bearing := rand.Float64() * 2 * math.Pi
	return models.Location{
		Lat: base.Lat + math.Cos(bearing)*meters/latMetersPerDeg,
		Lng: base.Lng + math.Sin(bearing)*meters/lngMetersPerDeg,
	}
}

package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loctrack/field-tracker/internal/models"
)

func TestSimulatedSource_Watch(t *testing.T) {
	source := &SimulatedSource{
		Base:     models.Location{Lat: 51.5074, Lng: -0.1278},
		Interval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	positions, err := source.Watch(ctx)
	require.NoError(t, err)

	var p Position
	select {
	case p = <-positions:
	case <-time.After(2 * time.Second):
		t.Fatal("no position emitted")
	}

	// The walker stays close to its base
	assert.InDelta(t, source.Base.Lat, p.Latitude, 0.01)
	assert.InDelta(t, source.Base.Lng, p.Longitude, 0.01)
	assert.Greater(t, p.AccuracyM, 0.0)
	require.NotNil(t, p.SpeedMS)
	assert.False(t, p.Timestamp.IsZero())

	// Cancelling closes the channel
	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-positions:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

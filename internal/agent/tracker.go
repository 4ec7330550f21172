package agent

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/geo"
	"github.com/loctrack/field-tracker/internal/models"
)

const (
	// DefaultSyncInterval is how often the accumulated batch is flushed.
	DefaultSyncInterval = 30 * time.Second

	// accuracyGateM rejects samples from distance accrual when the reported
	// accuracy is worse than this. GPS accuracy fluctuates; summing deltas
	// from poor fixes overstates distance while standing still.
	accuracyGateM = 50.0

	// minMoveKm is the minimum pairwise distance that counts as movement.
	minMoveKm = 0.005
)

// Tracker is the field agent loop: it consumes a position source, accrues
// distance, batches samples and syncs them on a timer. Delivery is
// at-least-once: a failed sync retains the batch and the next flush sends the
// union, so duplicates are possible.
type Tracker struct {
	source       PositionSource
	api          API
	probe        EnvironmentProbe
	state        *StateFile
	syncInterval time.Duration

	mu        sync.Mutex
	tracking  bool
	startTime time.Time
	totalKm   float64
	current   *Position
	reference *models.Location
	batch     []models.SamplePayload

	cancelWatch context.CancelFunc
	done        chan struct{}
}

// New creates a tracker. probe may be nil; the network status then stays
// unknown and no battery level is reported.
func New(source PositionSource, api API, probe EnvironmentProbe, state *StateFile, syncInterval time.Duration) *Tracker {
	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}
	return &Tracker{
		source:       source,
		api:          api,
		probe:        probe,
		state:        state,
		syncInterval: syncInterval,
	}
}

// Start opens a session on the backend and begins watching positions.
// Starting an already-tracking tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	// Claim the tracking flag before the backend call so a concurrent Start
	// cannot pass the guard and open a second session.
	t.mu.Lock()
	if t.tracking {
		t.mu.Unlock()
		return nil
	}
	t.tracking = true
	t.mu.Unlock()

	if err := t.api.StartSession(ctx); err != nil {
		t.mu.Lock()
		t.tracking = false
		t.mu.Unlock()
		return err
	}

	now := time.Now().UTC()
	t.mu.Lock()
	t.startTime = now
	t.totalKm = 0
	t.reference = nil
	t.batch = nil
	t.mu.Unlock()

	if err := t.state.Save(State{Tracking: true, StartTime: now}); err != nil {
		log.WithError(err).Warn("Failed to persist tracking state")
	}

	if err := t.beginWatch(ctx); err != nil {
		t.mu.Lock()
		t.tracking = false
		t.mu.Unlock()
		_ = t.state.Clear()
		return err
	}

	log.Info("Tracking started")
	return nil
}

// Recover resumes a session recorded in the durable state without re-issuing
// start: the server-side session is still open. Returns whether a session was
// resumed.
func (t *Tracker) Recover(ctx context.Context) (bool, error) {
	persisted, err := t.state.Load()
	if err != nil {
		return false, err
	}
	if !persisted.Tracking {
		return false, nil
	}

	t.mu.Lock()
	if t.tracking {
		t.mu.Unlock()
		return true, nil
	}
	t.tracking = true
	t.startTime = persisted.StartTime
	t.totalKm = persisted.TotalDistanceKm
	t.reference = nil
	t.mu.Unlock()

	if err := t.beginWatch(ctx); err != nil {
		t.mu.Lock()
		t.tracking = false
		t.mu.Unlock()
		return false, err
	}

	log.WithFields(log.Fields{
		"start_time":  persisted.StartTime,
		"distance_km": persisted.TotalDistanceKm,
	}).Info("Resumed tracking session")
	return true, nil
}

// Stop winds the agent down in order: stop the position watch and sync timer,
// flush the remaining batch, report the session stop with the accrued
// distance, then clear the durable state.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return nil
	}
	t.tracking = false
	cancel, done := t.cancelWatch, t.done
	t.mu.Unlock()

	// No more samples may be produced past this point.
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	if err := t.flush(ctx); err != nil {
		log.WithError(err).Warn("Final location sync failed")
	}

	t.mu.Lock()
	distance := t.totalKm
	t.mu.Unlock()

	if err := t.api.StopSession(ctx, distance); err != nil {
		return err
	}

	if err := t.state.Clear(); err != nil {
		log.WithError(err).Warn("Failed to clear tracking state")
	}

	t.mu.Lock()
	t.startTime = time.Time{}
	t.totalKm = 0
	t.current = nil
	t.reference = nil
	t.batch = nil
	t.mu.Unlock()

	log.WithField("distance_km", distance).Info("Tracking stopped")
	return nil
}

// IsTracking reports whether a session is active.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// TotalDistanceKm returns the accrued distance.
func (t *Tracker) TotalDistanceKm() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalKm
}

// CurrentPosition returns the most recent position, accepted or not.
func (t *Tracker) CurrentPosition() *Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	p := *t.current
	return &p
}

// PendingSamples returns the number of unsynced samples.
func (t *Tracker) PendingSamples() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.batch)
}

func (t *Tracker) beginWatch(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	positions, err := t.source.Watch(watchCtx)
	if err != nil {
		cancel()
		return err
	}

	t.mu.Lock()
	t.cancelWatch = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go t.run(watchCtx, positions, done)
	return nil
}

func (t *Tracker) run(ctx context.Context, positions <-chan Position, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case p, ok := <-positions:
			if !ok {
				return
			}
			t.HandlePosition(p)
		case <-ticker.C:
			if err := t.flush(ctx); err != nil {
				log.WithError(err).Warn("Location sync failed; batch retained")
			}
		case <-ctx.Done():
			return
		}
	}
}

// HandlePosition ingests one reading: the current position always updates,
// but the distance reference only moves when the sample passes the accuracy
// gate. A poor fix never resets the reference point.
func (t *Tracker) HandlePosition(p Position) {
	payload := t.payloadFor(p)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = &p

	if p.AccuracyM < accuracyGateM {
		loc := models.Location{Lat: p.Latitude, Lng: p.Longitude}
		if t.reference != nil {
			if d := geo.HaversineKm(*t.reference, loc); d > minMoveKm {
				t.totalKm += d
				t.persistLocked()
			}
		}
		t.reference = &loc
	}

	t.batch = append(t.batch, payload)
}

// Flush sends the pending batch immediately, outside the timer.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.flush(ctx)
}

func (t *Tracker) flush(ctx context.Context) error {
	t.mu.Lock()
	pending := len(t.batch)
	if pending == 0 {
		t.mu.Unlock()
		return nil
	}
	toSend := make([]models.SamplePayload, pending)
	copy(toSend, t.batch)
	t.mu.Unlock()

	if err := t.api.SyncLocations(ctx, toSend); err != nil {
		return err
	}

	// Drop only what was sent; samples accumulated during the request stay.
	t.mu.Lock()
	t.batch = t.batch[pending:]
	t.mu.Unlock()

	log.WithField("count", pending).Debug("Synced location batch")
	return nil
}

func (t *Tracker) payloadFor(p Position) models.SamplePayload {
	lat := p.Latitude
	lng := p.Longitude
	acc := p.AccuracyM
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	payload := models.SamplePayload{
		Latitude:      &lat,
		Longitude:     &lng,
		Accuracy:      &acc,
		Speed:         p.SpeedMS,
		Heading:       p.HeadingDeg,
		Timestamp:     &ts,
		NetworkStatus: models.NetworkStatusUnknown,
	}
	if t.probe != nil {
		payload.BatteryLevel = t.probe.BatteryLevel()
		if t.probe.IsOnline() {
			payload.NetworkStatus = "online"
		} else {
			payload.NetworkStatus = "offline"
		}
	}
	return payload
}

func (t *Tracker) persistLocked() {
	err := t.state.Save(State{
		Tracking:        true,
		StartTime:       t.startTime,
		TotalDistanceKm: t.totalKm,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to persist accrued distance")
	}
}

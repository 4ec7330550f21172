package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loctrack/field-tracker/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://bad:uri")
	client, err := ConnectMongo()
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestDatabaseName(t *testing.T) {
	t.Setenv("MONGO_DB", "")
	if got := DatabaseName(); got != "loctrack" {
		t.Errorf("expected default database name, got %q", got)
	}

	t.Setenv("MONGO_DB", "tracking-test")
	if got := DatabaseName(); got != "tracking-test" {
		t.Errorf("expected override, got %q", got)
	}
}

// Integration test (requires a MongoDB replica set; transactions do not run
// on a standalone server)
func TestTrackingStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
		return
	}
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	store := NewMongoTrackingStore(client, DatabaseName())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ownerID := "integration-owner"

	session, err := store.StartSession(ctx, ownerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.Status != models.SessionActive {
		t.Errorf("expected active session, got %q", session.Status)
	}

	// Starting again closes the first session
	second, err := store.StartSession(ctx, ownerID)
	if err != nil {
		t.Fatalf("second StartSession failed: %v", err)
	}
	if second.SessionID == session.SessionID {
		t.Error("expected a fresh session id")
	}
	active, err := store.ActiveSession(ctx, ownerID)
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active == nil || active.SessionID != second.SessionID {
		t.Error("expected the second session to be the only active one")
	}

	lat, lng := 51.5, -0.12
	count, err := store.AppendLocations(ctx, ownerID, []models.LocationSample{
		{OwnerID: ownerID, Latitude: lat, Longitude: lng, Timestamp: time.Now().UTC(), NetworkStatus: models.NetworkStatusUnknown},
	})
	if err != nil {
		t.Fatalf("AppendLocations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 inserted sample, got %d", count)
	}

	stopped, err := store.StopSession(ctx, ownerID, 2.5)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if stopped == nil || stopped.TotalDistanceKm != 2.5 {
		t.Error("expected the stop to record the reported distance")
	}
	if stopped.TotalLocations != 1 {
		t.Errorf("expected total_locations 1, got %d", stopped.TotalLocations)
	}

	// Stopping again finds nothing
	again, err := store.StopSession(ctx, ownerID, 0)
	if err != nil {
		t.Fatalf("second StopSession failed: %v", err)
	}
	if again != nil {
		t.Error("expected nil session when none is active")
	}
}

func integrationStore(t *testing.T) *MongoTrackingStore {
	t.Helper()
	if os.Getenv("MONGO_URI") == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return NewMongoTrackingStore(client, DatabaseName())
}

func integrationSamples(ownerID string, n int) []models.LocationSample {
	samples := make([]models.LocationSample, n)
	for i := range samples {
		samples[i] = models.LocationSample{
			OwnerID:       ownerID,
			Latitude:      51.5,
			Longitude:     -0.12,
			Timestamp:     time.Now().UTC(),
			NetworkStatus: models.NetworkStatusUnknown,
		}
	}
	return samples
}

// Interleaved batches from two owners must not bleed into each other's
// session counters.
func TestTrackingStore_Integration_InterleavedOwners(t *testing.T) {
	store := integrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ownerA := "it-" + uuid.NewString()
	ownerB := "it-" + uuid.NewString()
	for _, owner := range []string{ownerA, ownerB} {
		if _, err := store.StartSession(ctx, owner); err != nil {
			t.Fatalf("StartSession(%s) failed: %v", owner, err)
		}
	}

	batches := []struct {
		owner string
		size  int
	}{
		{ownerA, 2},
		{ownerB, 1},
		{ownerA, 1},
		{ownerB, 3},
	}
	for _, b := range batches {
		if _, err := store.AppendLocations(ctx, b.owner, integrationSamples(b.owner, b.size)); err != nil {
			t.Fatalf("AppendLocations(%s) failed: %v", b.owner, err)
		}
	}

	wantCounts := map[string]int64{ownerA: 3, ownerB: 4}
	for owner, want := range wantCounts {
		session, err := store.StopSession(ctx, owner, 0)
		if err != nil {
			t.Fatalf("StopSession(%s) failed: %v", owner, err)
		}
		if session == nil {
			t.Fatalf("expected an active session for %s", owner)
		}
		if session.TotalLocations != want {
			t.Errorf("owner %s: expected total_locations %d, got %d", owner, want, session.TotalLocations)
		}
	}
}

// Two concurrent starts for the same owner must leave exactly one active
// session.
func TestTrackingStore_Integration_ConcurrentStart(t *testing.T) {
	store := integrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ownerID := "it-" + uuid.NewString()
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.StartSession(ctx, ownerID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
	}

	sessions, err := store.RecentSessions(ctx, ownerID, 0)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	active := 0
	for _, s := range sessions {
		if s.Status == models.SessionActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active session, got %d", active)
	}
}

package db

import (
	"context"
	"errors"
	"time"

	"github.com/loctrack/field-tracker/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing the caller owns.
var ErrNotFound = errors.New("not found")

// TrackingStore defines session lifecycle and location ledger operations.
// Implementations must guarantee that StartSession's close-then-open sequence
// and AppendLocations' insert-then-increment each execute atomically, so at
// most one session per owner is ever active and total_locations matches the
// stored rows.
type TrackingStore interface {
	// StartSession closes any active session for the owner and opens a fresh
	// one, as a single atomic unit.
	StartSession(ctx context.Context, ownerID string) (*models.TrackingSession, error)

	// StopSession finalizes the owner's active session with the reported
	// distance. Returns (nil, nil) when there is no active session.
	StopSession(ctx context.Context, ownerID string, distanceKm float64) (*models.TrackingSession, error)

	// ActiveSession returns the owner's active session, or (nil, nil).
	ActiveSession(ctx context.Context, ownerID string) (*models.TrackingSession, error)

	// SessionByID returns the owner's session with the given id, or
	// ErrNotFound. Another owner's session is indistinguishable from absence.
	SessionByID(ctx context.Context, ownerID, sessionID string) (*models.TrackingSession, error)

	// RecentSessions lists the owner's sessions, newest first.
	RecentSessions(ctx context.Context, ownerID string, limit int64) ([]models.TrackingSession, error)

	// AppendLocations bulk-inserts samples and increments the active
	// session's total_locations in one transaction. Samples are stored even
	// when no session is active.
	AppendLocations(ctx context.Context, ownerID string, samples []models.LocationSample) (int, error)

	// LocationsInRange returns the owner's samples with timestamps in
	// [start, end] inclusive, ordered by timestamp.
	LocationsInRange(ctx context.Context, ownerID string, start, end time.Time, ascending bool, limit int64) ([]models.LocationSample, error)

	// RecentLocations returns the owner's samples, newest first.
	RecentLocations(ctx context.Context, ownerID string, limit int64) ([]models.LocationSample, error)

	// LatestPerOwner returns the most recent sample per owner within the
	// recency window.
	LatestPerOwner(ctx context.Context, window time.Duration) ([]models.LocationSample, error)
}

// UserCollection defines the read-only lookups against the mirrored Service
// Hub users. Account writes happen in the Service Hub, not here.
type UserCollection interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

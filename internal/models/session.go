package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session statuses. A session only ever moves from active to completed;
// starting again creates a new session.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// TrackingSession is one continuous tracking period for an owner. At most one
// session per owner may be active at any time.
type TrackingSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID       string             `bson:"session_id" json:"session_id"`
	OwnerID         string             `bson:"owner_id" json:"owner_id"`
	StartTime       time.Time          `bson:"start_time" json:"start_time"`
	EndTime         *time.Time         `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Status          string             `bson:"status" json:"status"`
	TotalDistanceKm float64            `bson:"total_distance" json:"total_distance"`
	TotalLocations  int64              `bson:"total_locations" json:"total_locations"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// Window returns the time range a sample's timestamp must fall in to belong
// to this session. For an active session the range is open-ended up to now.
func (s *TrackingSession) Window(now time.Time) (time.Time, time.Time) {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return s.StartTime, end
}

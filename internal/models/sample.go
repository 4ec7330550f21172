package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NetworkStatusUnknown is stored when the client reports no connectivity info.
const NetworkStatusUnknown = "unknown"

// LocationSample is one raw GPS reading in the location ledger. Samples are
// append-only and scoped to an owner; session membership is inferred from the
// timestamp, there is no session reference on the row.
type LocationSample struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID       string             `bson:"owner_id" json:"owner_id"`
	Latitude      float64            `bson:"latitude" json:"latitude"`
	Longitude     float64            `bson:"longitude" json:"longitude"`
	Accuracy      *float64           `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Speed         *float64           `bson:"speed,omitempty" json:"speed,omitempty"` // m/s
	Heading       *float64           `bson:"heading,omitempty" json:"heading,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	BatteryLevel  *int               `bson:"battery_level,omitempty" json:"battery_level,omitempty"`
	NetworkStatus string             `bson:"network_status" json:"network_status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

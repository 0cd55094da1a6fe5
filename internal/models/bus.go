package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bus statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Bus represents a tracked bus.
type Bus struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number    string             `bson:"number" json:"number"`
	Status    string             `bson:"status" json:"status"` // "active" or "inactive"
	Current   GeoPoint           `bson:"current" json:"current"`
	StepIndex int                `bson:"step_index" json:"step_index"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

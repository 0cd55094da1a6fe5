package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safiridev/bus-tracking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrStoreUnavailable wraps any store-level failure. Callers treat it as a
// skip-this-tick condition, never fatal.
var ErrStoreUnavailable = errors.New("bus store unavailable")

// BusStore defines the interface for bus persistence operations.
type BusStore interface {
	FindActive(ctx context.Context) ([]models.Bus, error)
	InsertBus(ctx context.Context, bus models.Bus) error
	UpdatePosition(ctx context.Context, id string, lat, lng float64, stepIndex int) error
}

// MongoBusStore implements BusStore for MongoDB.
type MongoBusStore struct {
	Collection *mongo.Collection
}

// FindActive returns all buses whose status is "active".
func (s *MongoBusStore) FindActive(ctx context.Context) ([]models.Bus, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("%w: mongo collection is nil", ErrStoreUnavailable)
	}

	cursor, err := s.Collection.Find(ctx, bson.M{"status": models.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var buses []models.Bus
	if err := cursor.All(ctx, &buses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return buses, nil
}

// InsertBus inserts a bus record into the collection.
func (s *MongoBusStore) InsertBus(ctx context.Context, bus models.Bus) error {
	if s.Collection == nil {
		return fmt.Errorf("%w: mongo collection is nil", ErrStoreUnavailable)
	}
	bus.CreatedAt = time.Now()
	if _, err := s.Collection.InsertOne(ctx, bus); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// UpdatePosition sets a bus's current position and step cursor. The write is
// a plain $set of the three fields, so it is idempotent and last-value-wins.
func (s *MongoBusStore) UpdatePosition(ctx context.Context, id string, lat, lng float64, stepIndex int) error {
	if s.Collection == nil {
		return fmt.Errorf("%w: mongo collection is nil", ErrStoreUnavailable)
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid bus ID: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"current":    models.GeoPoint{Lat: lat, Lng: lng},
		"step_index": stepIndex,
	}}
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("bus not found")
	}
	return nil
}

// CountBuses returns the number of bus documents in the collection.
func (s *MongoBusStore) CountBuses(ctx context.Context) (int64, error) {
	if s.Collection == nil {
		return 0, fmt.Errorf("%w: mongo collection is nil", ErrStoreUnavailable)
	}
	n, err := s.Collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

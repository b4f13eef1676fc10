// Package local is haven's device-local key/value persistence.
//
// Every collection (recipes, meal plan, water intake) and the remote
// connection settings are stored as one JSON document per key. The durable
// implementation is an embedded SQLite database; when that can't be opened
// the app keeps running on an Ephemeral store that forgets everything on exit.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// Well-known keys.
const (
	KeyRecipes      = "recipes"
	KeyMealPlan     = "mealplan"
	KeyWaterIntake  = "water_intake"
	KeyRemoteConfig = "remote_config"
)

// ErrStorageUnavailable is returned by Open when durable storage can't be used.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// Store is a string-keyed store of opaque values.
//
// Writes for a single key are atomic; PutAll replaces several keys in one
// transaction so readers never observe a half-applied set.
type Store interface {
	// Get returns the value stored under key. ok is false when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	PutAll(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	// Durable reports whether values survive a restart.
	Durable() bool
	Close() error
}

// OpenOrEphemeral opens the durable store at path, falling back to an
// Ephemeral store (with a warning on logger) if that fails.
func OpenOrEphemeral(path string, logger *log.Logger) Store {
	if path == "" {
		logger.Printf("WARNING: no data directory configured; changes will not be saved")
		return Ephemeral{}
	}
	db, err := Open(path)
	if err != nil {
		logger.Printf("WARNING: %v; changes will not be saved", err)
		return Ephemeral{}
	}
	return db
}

// Ephemeral is the degraded store: reads find nothing and writes are dropped.
type Ephemeral struct{}

// Get always reports the key as absent.
func (Ephemeral) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Put drops the value.
func (Ephemeral) Put(context.Context, string, []byte) error { return nil }

// PutAll drops every value.
func (Ephemeral) PutAll(context.Context, map[string][]byte) error { return nil }

// Delete is a no-op.
func (Ephemeral) Delete(context.Context, string) error { return nil }

// Durable is always false for Ephemeral.
func (Ephemeral) Durable() bool { return false }

// Close is a no-op.
func (Ephemeral) Close() error { return nil }

// LoadJSON decodes the value stored under key into v. It returns false
// without touching v when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// SaveAllJSON encodes every value and writes them with a single PutAll.
func SaveAllJSON(ctx context.Context, s Store, values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		encoded[key] = data
	}
	return s.PutAll(ctx, encoded)
}

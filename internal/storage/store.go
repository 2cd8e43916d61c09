// Package storage provides abstractions for persistent event storage.
package storage

import (
	"context"
	"errors"

	"tripledger/internal/models"
)

// ErrEventNotFound is returned when an event id does not exist.
var ErrEventNotFound = errors.New("event not found")

// EventInfo is a lightweight listing entry for an event.
type EventInfo struct {
	ID        string
	Name      string
	Currency  string
	CreatedAt int64
	People    int
}

// Store defines the interface for event storage. The store is the single
// writer for an event: it serializes mutations so the settlement engine
// can assume single-writer access during a computation. This abstraction
// allows swapping storage backends without changing the service layer.
type Store interface {
	// CreateEvent persists a new event including its people and
	// activities.
	CreateEvent(ctx context.Context, event *models.Event) error

	// GetEvent reconstructs a full event by id, re-running model
	// validation. Returns ErrEventNotFound for unknown ids.
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)

	// ListEvents returns listing entries for all events, newest first.
	ListEvents(ctx context.Context) ([]EventInfo, error)

	// AddPerson appends a person to an existing event.
	AddPerson(ctx context.Context, eventID string, p models.Person) error

	// AddActivity appends an activity to an existing event.
	AddActivity(ctx context.Context, eventID string, a *models.Activity) error

	// DeleteEvent removes an event and everything it owns.
	DeleteEvent(ctx context.Context, eventID string) error

	// Close releases any resources held by the store.
	Close() error
}

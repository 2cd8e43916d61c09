package models

import (
	"strings"

	"github.com/google/uuid"
)

// Person is an event member. Equality is by ID only; names are display
// data and may repeat across people.
type Person struct {
	// ID is the opaque unique identifier (UUID format).
	ID string

	// Name is the display name, non-empty after trimming.
	Name string
}

// NewPerson creates a person with a fresh id.
func NewPerson(name string) (Person, error) {
	return NewPersonWithID(uuid.New().String(), name)
}

// NewPersonWithID creates a person with a caller-supplied id, used when
// loading previously stored or imported data.
func NewPersonWithID(id, name string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, Validationf("person name cannot be empty")
	}
	if id == "" {
		return Person{}, Validationf("person id cannot be empty")
	}
	return Person{ID: id, Name: name}, nil
}

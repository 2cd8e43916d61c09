package models

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultCurrency is used when an event is created without a currency code.
const DefaultCurrency = "USD"

// Event owns an ordered collection of people and activities. Every payer
// and participant referenced by an added activity must already be a
// member, checked by person id.
//
// An event is not safe for concurrent mutation; the storage layer
// serializes writes per event.
type Event struct {
	id         string
	name       string
	currency   string
	people     []Person
	activities []*Activity
	members    map[string]Person
}

// NewEvent creates an empty event with a fresh id.
func NewEvent(name, currency string) *Event {
	return RestoreEvent(uuid.New().String(), name, currency)
}

// RestoreEvent creates an empty event with a caller-supplied id, used when
// loading stored or imported data. People and activities are re-added
// through AddMember/AddActivity so integrity checks re-run.
func RestoreEvent(id, name, currency string) *Event {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Event{
		id:       id,
		name:     strings.TrimSpace(name),
		currency: currency,
		members:  make(map[string]Person),
	}
}

// ID returns the event's unique identifier.
func (e *Event) ID() string { return e.id }

// Name returns the event name.
func (e *Event) Name() string { return e.name }

// Currency returns the event's currency code.
func (e *Event) Currency() string { return e.currency }

// AddPerson creates a person from a name and adds them to the event.
func (e *Event) AddPerson(name string) (Person, error) {
	p, err := NewPerson(name)
	if err != nil {
		return Person{}, err
	}
	if err := e.AddMember(p); err != nil {
		return Person{}, err
	}
	return p, nil
}

// AddMember adds an already-constructed person to the event.
func (e *Event) AddMember(p Person) error {
	if p.ID == "" {
		return Validationf("person id cannot be empty")
	}
	if _, exists := e.members[p.ID]; exists {
		return Validationf("person %s (%s) is already in the event", p.Name, p.ID)
	}
	e.members[p.ID] = p
	e.people = append(e.people, p)
	return nil
}

// AddActivity appends a validated activity after checking that every
// payer and participant is an event member.
func (e *Event) AddActivity(a *Activity) error {
	for _, payment := range a.Payments() {
		if _, ok := e.members[payment.PersonID]; !ok {
			return Validationf("payer %s is not in the event", payment.PersonID)
		}
	}
	for _, id := range a.Participants() {
		if _, ok := e.members[id]; !ok {
			return Validationf("participant %s is not in the event", id)
		}
	}
	e.activities = append(e.activities, a)
	return nil
}

// People returns the members in insertion order.
func (e *Event) People() []Person {
	out := make([]Person, len(e.people))
	copy(out, e.people)
	return out
}

// Activities returns the activities in insertion order.
func (e *Event) Activities() []*Activity {
	out := make([]*Activity, len(e.activities))
	copy(out, e.activities)
	return out
}

// PersonByID looks a member up by id.
func (e *Event) PersonByID(id string) (Person, bool) {
	p, ok := e.members[id]
	return p, ok
}

// Names returns the person id to display name side table used for
// deterministic ordering in settlement output.
func (e *Event) Names() map[string]string {
	names := make(map[string]string, len(e.people))
	for _, p := range e.people {
		names[p.ID] = p.Name
	}
	return names
}

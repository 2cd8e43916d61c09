// Package service orchestrates the event store and the settlement engine
// for the HTTP and CLI surfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"tripledger/internal/calculator"
	"tripledger/internal/models"
	"tripledger/internal/storage"
)

var (
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripledger_settlements_total",
		Help: "Settlement computations by outcome.",
	}, []string{"outcome"})

	settlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripledger_settlement_duration_seconds",
		Help:    "Time spent computing a settlement.",
		Buckets: prometheus.DefBuckets,
	})

	activitiesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripledger_activities_added_total",
		Help: "Activities recorded across all events.",
	})
)

// ActivityInput carries the fields needed to record an activity. Exactly
// one of PayerID (single payer) or Payers (explicit split) must be set.
type ActivityInput struct {
	Description    string
	Amount         decimal.Decimal
	PayerID        string
	Payers         []models.Payment
	ParticipantIDs []string
	Strategy       string
	Weights        map[string]decimal.Decimal
	Shares         map[string]decimal.Decimal
}

// Settlement is the paired output that reconciles an event: the transfer
// list and the per-person summary.
type Settlement struct {
	Event     *models.Event
	Balances  map[string]decimal.Decimal
	Transfers []models.Transfer
	Summary   []calculator.PersonSummary
}

// SettlementService exposes event management and settlement computation
// on top of a storage backend. Settlements are recomputed from scratch on
// every request; nothing is cached.
type SettlementService struct {
	store storage.Store
}

// NewSettlementService creates a SettlementService with the given storage
// backend.
func NewSettlementService(store storage.Store) *SettlementService {
	return &SettlementService{store: store}
}

// CreateEvent creates and persists an empty event.
func (s *SettlementService) CreateEvent(ctx context.Context, name, currency string) (*models.Event, error) {
	event := models.NewEvent(name, currency)
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	slog.Info("Event created", "event_id", event.ID(), "name", event.Name(), "currency", event.Currency())
	return event, nil
}

// GetEvent loads a full event.
func (s *SettlementService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

// ListEvents returns listing entries for all stored events.
func (s *SettlementService) ListEvents(ctx context.Context) ([]storage.EventInfo, error) {
	return s.store.ListEvents(ctx)
}

// DeleteEvent removes an event.
func (s *SettlementService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	slog.Info("Event deleted", "event_id", eventID)
	return nil
}

// AddPerson creates a person and appends them to the event.
func (s *SettlementService) AddPerson(ctx context.Context, eventID, name string) (models.Person, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return models.Person{}, err
	}
	person, err := event.AddPerson(name)
	if err != nil {
		return models.Person{}, err
	}
	if err := s.store.AddPerson(ctx, eventID, person); err != nil {
		return models.Person{}, fmt.Errorf("persist person: %w", err)
	}
	slog.Info("Person added", "event_id", eventID, "person_id", person.ID, "name", person.Name)
	return person, nil
}

// AddActivity validates an activity against the event's membership and
// appends it.
func (s *SettlementService) AddActivity(ctx context.Context, eventID string, in ActivityInput) (*models.Activity, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var payer models.Payer
	switch {
	case len(in.Payers) > 0 && in.PayerID != "":
		return nil, models.Validationf("set either payer_id or payers, not both")
	case len(in.Payers) > 0:
		payer = models.SplitPayer(in.Payers)
	default:
		payer = models.SinglePayer(in.PayerID)
	}

	strategy := models.StrategyEqual
	if in.Strategy != "" {
		strategy, err = models.ParseStrategy(in.Strategy)
		if err != nil {
			return nil, err
		}
	}

	activity, err := models.NewActivity(in.Description, in.Amount, payer, in.ParticipantIDs, strategy, in.Weights, in.Shares)
	if err != nil {
		return nil, err
	}
	if err := event.AddActivity(activity); err != nil {
		return nil, err
	}
	if err := s.store.AddActivity(ctx, eventID, activity); err != nil {
		return nil, fmt.Errorf("persist activity: %w", err)
	}

	activitiesAdded.Inc()
	slog.Info("Activity added",
		"event_id", eventID,
		"activity_id", activity.ID(),
		"description", activity.Description(),
		"amount", activity.Amount(),
		"strategy", string(activity.Strategy()),
	)
	return activity, nil
}

// ComputeSettlement loads the event and runs the full settlement
// pipeline: net balances, minimal transfers and the per-person summary.
func (s *SettlementService) ComputeSettlement(ctx context.Context, eventID string) (*Settlement, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	settlement, err := Compute(event)
	if err != nil {
		slog.Error("Settlement computation failed", "event_id", eventID, "error", err)
		return nil, err
	}
	slog.Info("Settlement computed",
		"event_id", eventID,
		"people", len(event.People()),
		"activities", len(event.Activities()),
		"transfers", len(settlement.Transfers),
	)
	return settlement, nil
}

// Compute runs the settlement pipeline on an in-memory event. It is a
// pure function of the event's current people and activities.
func Compute(event *models.Event) (*Settlement, error) {
	start := time.Now()

	balances, err := calculator.NetBalances(event)
	if err != nil {
		settlementsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	transfers, err := calculator.MinimalTransfers(balances, event.People(), calculator.DefaultTolerance)
	if err != nil {
		settlementsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	summary, err := calculator.Summary(event, balances)
	if err != nil {
		settlementsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	settlementsTotal.WithLabelValues("ok").Inc()
	settlementDuration.Observe(time.Since(start).Seconds())

	return &Settlement{
		Event:     event,
		Balances:  balances,
		Transfers: transfers,
		Summary:   summary,
	}, nil
}

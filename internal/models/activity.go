package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripledger/internal/money"
)

// Strategy selects how an activity's amount is split among participants.
type Strategy string

const (
	// StrategyEqual splits the amount evenly across participants.
	StrategyEqual Strategy = "EQUAL"
	// StrategyWeighted splits the amount by per-participant weights,
	// renormalized to sum to 1 at construction.
	StrategyWeighted Strategy = "WEIGHTED"
	// StrategyFixedShares assigns each participant a pre-agreed amount.
	StrategyFixedShares Strategy = "FIXED_SHARES"
)

// ParseStrategy converts a strategy tag to its Strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyEqual:
		return StrategyEqual, nil
	case StrategyWeighted:
		return StrategyWeighted, nil
	case StrategyFixedShares:
		return StrategyFixedShares, nil
	}
	return "", Validationf("unknown split strategy %q", s)
}

// Payment is one payer's contribution to an activity.
type Payment struct {
	PersonID string
	Amount   decimal.Decimal
}

// Payer is a tagged variant: either a single person who covered the whole
// activity amount, or an explicit split across several payers.
type Payer struct {
	single string
	split  []Payment
}

// SinglePayer returns a Payer where one person paid the full amount.
func SinglePayer(personID string) Payer {
	return Payer{single: personID}
}

// SplitPayer returns a Payer where several people paid stated amounts.
func SplitPayer(payments []Payment) Payer {
	return Payer{split: payments}
}

// IsSplit reports whether the payer is the multi-payer variant.
func (p Payer) IsSplit() bool {
	return len(p.split) > 0
}

func (p Payer) empty() bool {
	return p.single == "" && len(p.split) == 0
}

// Activity is an immutable expense event. Build one with NewActivity;
// the constructor validates every invariant so downstream computation
// can assume a well-formed activity.
type Activity struct {
	id           string
	description  string
	amount       decimal.Decimal
	payments     []Payment
	participants []string
	strategy     Strategy
	weights      map[string]decimal.Decimal
	shares       map[string]decimal.Decimal
}

// NewActivity validates and constructs an activity.
//
// weights is required for StrategyWeighted and is renormalized so the
// values sum to 1 (the only post-construction mutation, applied here
// exactly once). shares is required for StrategyFixedShares and must sum
// to amount within a cent. Both are keyed by person id.
func NewActivity(description string, amount decimal.Decimal, payer Payer, participantIDs []string, strategy Strategy, weights, shares map[string]decimal.Decimal) (*Activity, error) {
	return NewActivityWithID(uuid.New().String(), description, amount, payer, participantIDs, strategy, weights, shares)
}

// NewActivityWithID is NewActivity with a caller-supplied id, used when
// loading previously stored or imported data.
func NewActivityWithID(id, description string, amount decimal.Decimal, payer Payer, participantIDs []string, strategy Strategy, weights, shares map[string]decimal.Decimal) (*Activity, error) {
	if id == "" {
		return nil, Validationf("activity id cannot be empty")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, Validationf("activity description cannot be empty")
	}
	if amount.IsNegative() {
		return nil, Validationf("activity amount must be non-negative, got %s", amount)
	}
	if len(participantIDs) == 0 {
		return nil, Validationf("activity %q must have at least one participant", description)
	}
	seen := make(map[string]bool, len(participantIDs))
	participants := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		if id == "" {
			return nil, Validationf("activity %q has a participant with an empty id", description)
		}
		if seen[id] {
			return nil, Validationf("activity %q lists participant %s twice", description, id)
		}
		seen[id] = true
		participants = append(participants, id)
	}

	if payer.empty() {
		return nil, Validationf("activity %q must have at least one payer", description)
	}
	payments, err := normalizePayments(description, amount, payer)
	if err != nil {
		return nil, err
	}

	a := &Activity{
		id:           id,
		description:  description,
		amount:       amount,
		payments:     payments,
		participants: participants,
		strategy:     strategy,
	}

	switch strategy {
	case StrategyEqual:
		// No extra configuration.
	case StrategyWeighted:
		if len(weights) == 0 {
			return nil, Validationf("WEIGHTED strategy requires weights for activity %q", description)
		}
		a.weights, err = renormalizeWeights(description, weights)
		if err != nil {
			return nil, err
		}
	case StrategyFixedShares:
		if len(shares) == 0 {
			return nil, Validationf("FIXED_SHARES strategy requires shares for activity %q", description)
		}
		if err := validateShares(description, amount, shares); err != nil {
			return nil, err
		}
		a.shares = copyAmounts(shares)
	default:
		return nil, Validationf("unknown split strategy %q", string(strategy))
	}

	return a, nil
}

func normalizePayments(description string, amount decimal.Decimal, payer Payer) ([]Payment, error) {
	if !payer.IsSplit() {
		return []Payment{{PersonID: payer.single, Amount: amount}}, nil
	}

	total := decimal.Zero
	payments := make([]Payment, len(payer.split))
	for i, p := range payer.split {
		if p.PersonID == "" {
			return nil, Validationf("activity %q has a payer with an empty id", description)
		}
		if p.Amount.IsNegative() {
			return nil, Validationf("payer %s amount must be non-negative, got %s", p.PersonID, p.Amount)
		}
		total = total.Add(p.Amount)
		payments[i] = p
	}
	if total.Sub(amount).Abs().GreaterThan(money.Cent) {
		return nil, Validationf("multi-payer amounts sum to %s, but activity amount is %s", total, amount)
	}
	return payments, nil
}

func renormalizeWeights(description string, weights map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, Validationf("weights for activity %q sum to %s, must be positive", description, sum)
	}
	normalized := make(map[string]decimal.Decimal, len(weights))
	for id, w := range weights {
		normalized[id] = w.Div(sum)
	}
	return normalized, nil
}

func validateShares(description string, amount decimal.Decimal, shares map[string]decimal.Decimal) error {
	sum := decimal.Zero
	for id, s := range shares {
		if s.IsNegative() {
			return Validationf("share for %s must be non-negative, got %s", id, s)
		}
		sum = sum.Add(s)
	}
	if sum.Sub(amount).Abs().GreaterThan(money.Cent) {
		return Validationf("fixed shares sum to %s, but activity amount is %s", sum, amount)
	}
	return nil
}

func copyAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ID returns the activity's unique identifier.
func (a *Activity) ID() string { return a.id }

// Description returns the activity description.
func (a *Activity) Description() string { return a.description }

// Amount returns the total activity amount.
func (a *Activity) Amount() decimal.Decimal { return a.amount }

// Strategy returns the split strategy tag.
func (a *Activity) Strategy() Strategy { return a.strategy }

// Payments returns the normalized payer list: single payers become one
// payment covering the full amount.
func (a *Activity) Payments() []Payment {
	out := make([]Payment, len(a.payments))
	copy(out, a.payments)
	return out
}

// Participants returns the participant ids in insertion order.
func (a *Activity) Participants() []string {
	out := make([]string, len(a.participants))
	copy(out, a.participants)
	return out
}

// HasParticipant reports whether the person takes part in the activity.
func (a *Activity) HasParticipant(personID string) bool {
	for _, id := range a.participants {
		if id == personID {
			return true
		}
	}
	return false
}

// Weight returns the renormalized weight for a participant, if any.
func (a *Activity) Weight(personID string) (decimal.Decimal, bool) {
	w, ok := a.weights[personID]
	return w, ok
}

// FixedShare returns the fixed share for a participant, if any.
func (a *Activity) FixedShare(personID string) (decimal.Decimal, bool) {
	s, ok := a.shares[personID]
	return s, ok
}

// Weights returns a copy of the renormalized weight map, nil for
// non-weighted activities.
func (a *Activity) Weights() map[string]decimal.Decimal {
	if a.weights == nil {
		return nil
	}
	return copyAmounts(a.weights)
}

// FixedShares returns a copy of the share map, nil for activities that do
// not use fixed shares.
func (a *Activity) FixedShares() map[string]decimal.Decimal {
	if a.shares == nil {
		return nil
	}
	return copyAmounts(a.shares)
}

// Package calculator is the settlement engine: split-strategy evaluation,
// net balance aggregation, greedy debt simplification and per-person
// summaries. Every function is pure; input maps are never mutated.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tripledger/internal/models"
	"tripledger/internal/money"
)

// StrategyError reports a per-share query the activity's strategy
// configuration does not cover, or an unrecognized strategy tag.
type StrategyError struct {
	Msg string
}

func (e *StrategyError) Error() string {
	return e.Msg
}

func strategyErrorf(format string, args ...any) *StrategyError {
	return &StrategyError{Msg: fmt.Sprintf(format, args...)}
}

// Share computes one participant's fair share of an activity under its
// split strategy, rounded to two places.
func Share(a *models.Activity, personID string) (decimal.Decimal, error) {
	switch a.Strategy() {
	case models.StrategyEqual:
		return equalShare(a, personID)
	case models.StrategyWeighted:
		return weightedShare(a, personID)
	case models.StrategyFixedShares:
		return fixedShare(a, personID)
	}
	return decimal.Zero, strategyErrorf("unknown split strategy %q", string(a.Strategy()))
}

func equalShare(a *models.Activity, personID string) (decimal.Decimal, error) {
	if !a.HasParticipant(personID) {
		return decimal.Zero, strategyErrorf("person %s is not a participant of activity %q", personID, a.Description())
	}
	n := int64(len(a.Participants()))
	return money.Round(a.Amount().Div(decimal.NewFromInt(n))), nil
}

func weightedShare(a *models.Activity, personID string) (decimal.Decimal, error) {
	w, ok := a.Weight(personID)
	if !ok {
		return decimal.Zero, strategyErrorf("no weight for person %s in activity %q", personID, a.Description())
	}
	return money.Round(a.Amount().Mul(w)), nil
}

func fixedShare(a *models.Activity, personID string) (decimal.Decimal, error) {
	s, ok := a.FixedShare(personID)
	if !ok {
		return decimal.Zero, strategyErrorf("no fixed share for person %s in activity %q", personID, a.Description())
	}
	return money.Round(s), nil
}

// AllShares evaluates the activity's strategy for every participant. The
// returned map covers exactly the participant set.
func AllShares(a *models.Activity) (map[string]decimal.Decimal, error) {
	participants := a.Participants()
	shares := make(map[string]decimal.Decimal, len(participants))
	for _, id := range participants {
		share, err := Share(a, id)
		if err != nil {
			return nil, err
		}
		shares[id] = share
	}
	return shares, nil
}

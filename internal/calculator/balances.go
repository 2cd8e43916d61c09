package calculator

import (
	"github.com/shopspring/decimal"

	"tripledger/internal/models"
	"tripledger/internal/money"
)

// DefaultTolerance is the residual imbalance accepted across a whole
// event (0.02). Rounding error accumulates per activity, so this is
// looser than the single-activity tolerance.
var DefaultTolerance = decimal.New(2, -2)

// NetBalances computes each person's net balance over every activity in
// the event: paid amounts added, fair shares subtracted. The result
// covers every event member (people absent from all activities stay at
// zero), is rounded to two places, and is reconciled to sum to exactly
// zero. A larger imbalance fails with a *money.RoundingError.
func NetBalances(event *models.Event) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(event.People()))
	for _, p := range event.People() {
		balances[p.ID] = decimal.Zero
	}

	for _, a := range event.Activities() {
		shares, err := AllShares(a)
		if err != nil {
			return nil, err
		}
		for id, share := range shares {
			balances[id] = balances[id].Sub(share)
		}
		for _, payment := range a.Payments() {
			balances[payment.PersonID] = balances[payment.PersonID].Add(payment.Amount)
		}
	}

	for id, b := range balances {
		balances[id] = money.Round(b)
	}

	return money.EnsureZeroSum(balances, event.Names(), DefaultTolerance)
}

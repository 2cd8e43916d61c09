package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"tripledger/internal/models"
	"tripledger/internal/money"
)

// PersonSummary pairs a person with their totals: Paid across all
// activities they paid for, Owed across all activities they took part in,
// and the net balance computed upstream. Paid minus Owed equals Net
// within the engine tolerance.
type PersonSummary struct {
	Person models.Person
	Paid   decimal.Decimal
	Owed   decimal.Decimal
	Net    decimal.Decimal
}

// Summary reports paid, owed and net per person, ordered by (name, id)
// for stable output. balances is the result of NetBalances for the same
// event; a person absent from every activity reports zeros.
func Summary(event *models.Event, balances map[string]decimal.Decimal) ([]PersonSummary, error) {
	paid := make(map[string]decimal.Decimal, len(event.People()))
	owed := make(map[string]decimal.Decimal, len(event.People()))
	for _, p := range event.People() {
		paid[p.ID] = decimal.Zero
		owed[p.ID] = decimal.Zero
	}

	for _, a := range event.Activities() {
		for _, payment := range a.Payments() {
			paid[payment.PersonID] = paid[payment.PersonID].Add(payment.Amount)
		}
		shares, err := AllShares(a)
		if err != nil {
			return nil, err
		}
		for id, share := range shares {
			owed[id] = owed[id].Add(share)
		}
	}

	people := event.People()
	sort.Slice(people, func(i, j int) bool {
		return lessByName(people[i], people[j])
	})

	summaries := make([]PersonSummary, 0, len(people))
	for _, p := range people {
		summaries = append(summaries, PersonSummary{
			Person: p,
			Paid:   money.Round(paid[p.ID]),
			Owed:   money.Round(owed[p.ID]),
			Net:    balances[p.ID],
		})
	}
	return summaries, nil
}

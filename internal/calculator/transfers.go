package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"tripledger/internal/models"
	"tripledger/internal/money"
)

type holding struct {
	person  models.Person
	balance decimal.Decimal
}

// MinimalTransfers turns a zero-sum balance map into an ordered list of
// transfers that clears every balance to within tolerance.
//
// The algorithm is greedy: repeatedly match the largest creditor with the
// largest debtor and move min(credit, -debt). It is deterministic and
// empirically near-minimal, but does not guarantee the theoretical
// minimum transfer count (an NP-hard subset-matching problem); see
// DESIGN.md. Each iteration fully clears at least one side, so the loop
// is bounded by the number of people.
//
// The people slice is the roster used to resolve names for transfer
// output and tie-breaking. The input balances map is not mutated.
func MinimalTransfers(balances map[string]decimal.Decimal, people []models.Person, tolerance decimal.Decimal) ([]models.Transfer, error) {
	roster := make(map[string]models.Person, len(people))
	for _, p := range people {
		roster[p.ID] = p
	}
	working := make(map[string]decimal.Decimal, len(balances))
	for id, b := range balances {
		if _, ok := roster[id]; !ok {
			return nil, models.Validationf("balance references person %s who is not in the roster", id)
		}
		working[id] = b
	}

	var transfers []models.Transfer
	for {
		creditor, debtor, ok := pickPair(working, roster, tolerance)
		if !ok {
			break
		}

		amount := creditor.balance
		if debt := debtor.balance.Neg(); debt.LessThan(amount) {
			amount = debt
		}
		amount = money.Round(amount)

		t, err := models.NewTransfer(debtor.person, creditor.person, amount)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)

		working[creditor.person.ID] = money.Round(working[creditor.person.ID].Sub(amount))
		working[debtor.person.ID] = money.Round(working[debtor.person.ID].Add(amount))
	}

	for id, b := range working {
		if b.Abs().GreaterThan(tolerance) {
			return nil, &money.RoundingError{
				Msg: "final balance for " + roster[id].Name + " is " + b.String() + ", exceeds tolerance " + tolerance.String(),
			}
		}
	}

	sort.Slice(transfers, func(i, j int) bool {
		a, b := transfers[i], transfers[j]
		if a.From.Name != b.From.Name {
			return a.From.Name < b.From.Name
		}
		if a.From.ID != b.From.ID {
			return a.From.ID < b.From.ID
		}
		if a.To.Name != b.To.Name {
			return a.To.Name < b.To.Name
		}
		return a.To.ID < b.To.ID
	})

	return transfers, nil
}

// pickPair selects the largest creditor and largest debtor still outside
// tolerance, breaking ties by name then id ascending.
func pickPair(working map[string]decimal.Decimal, roster map[string]models.Person, tolerance decimal.Decimal) (creditor, debtor holding, ok bool) {
	var haveCreditor, haveDebtor bool
	for id, b := range working {
		p := roster[id]
		switch {
		case b.GreaterThan(tolerance):
			if !haveCreditor || betterCreditor(p, b, creditor) {
				creditor = holding{person: p, balance: b}
				haveCreditor = true
			}
		case b.LessThan(tolerance.Neg()):
			if !haveDebtor || betterDebtor(p, b, debtor) {
				debtor = holding{person: p, balance: b}
				haveDebtor = true
			}
		}
	}
	return creditor, debtor, haveCreditor && haveDebtor
}

func betterCreditor(p models.Person, b decimal.Decimal, current holding) bool {
	if !b.Equal(current.balance) {
		return b.GreaterThan(current.balance)
	}
	return lessByName(p, current.person)
}

func betterDebtor(p models.Person, b decimal.Decimal, current holding) bool {
	if !b.Equal(current.balance) {
		return b.LessThan(current.balance)
	}
	return lessByName(p, current.person)
}

func lessByName(a, b models.Person) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

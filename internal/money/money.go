// Package money provides exact decimal rounding and zero-sum reconciliation
// for balance maps. All arithmetic is on shopspring decimals; binary floats
// never touch an amount.
package money

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Cent is the smallest representable adjustment (0.01).
var Cent = decimal.New(1, -2)

// DefaultTolerance is the residual imbalance accepted as rounding noise
// for a single activity (0.01).
var DefaultTolerance = decimal.New(1, -2)

// RoundingError reports an imbalance that exceeds its stated tolerance.
// It signals an internal invariant violation, not bad user input, and is
// surfaced distinctly from validation failures.
type RoundingError struct {
	Msg string
}

func (e *RoundingError) Error() string {
	return e.Msg
}

func roundingErrorf(format string, args ...any) *RoundingError {
	return &RoundingError{Msg: fmt.Sprintf(format, args...)}
}

// Round rounds a monetary amount to 2 decimal places using banker's
// rounding (round half to even).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(2)
}

// RoundTo rounds a monetary amount to the given number of decimal places
// using banker's rounding.
func RoundTo(amount decimal.Decimal, places int32) decimal.Decimal {
	return amount.RoundBank(places)
}

// Sum adds up every value in a balance map.
func Sum(balances map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}

// EnsureZeroSum verifies that balances sum to zero within tolerance and
// returns a copy whose values sum to exactly zero, distributing any small
// remainder. The names map (person id to display name) drives deterministic
// adjustment ordering. A total beyond tolerance is an upstream bug and
// fails with a RoundingError.
func EnsureZeroSum(balances map[string]decimal.Decimal, names map[string]string, tolerance decimal.Decimal) (map[string]decimal.Decimal, error) {
	total := Sum(balances)
	if total.Abs().GreaterThan(tolerance) {
		return nil, roundingErrorf("balances sum to %s, which exceeds tolerance %s", total, tolerance)
	}
	if total.IsZero() {
		return copyBalances(balances), nil
	}
	return DistributeRemainder(balances, names, total, tolerance)
}

// DistributeRemainder spreads a small remainder across balances in fixed
// one-cent increments, adjusting the people closest to zero first so the
// distortion stays invisible. Ties break by name, then id. The input map
// is never mutated.
func DistributeRemainder(balances map[string]decimal.Decimal, names map[string]string, remainder, tolerance decimal.Decimal) (map[string]decimal.Decimal, error) {
	if remainder.Abs().GreaterThan(tolerance) {
		return nil, roundingErrorf("remainder %s exceeds tolerance %s", remainder, tolerance)
	}

	adjusted := copyBalances(balances)
	if remainder.IsZero() {
		return adjusted, nil
	}

	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ai, aj := balances[ids[i]].Abs(), balances[ids[j]].Abs()
		if !ai.Equal(aj) {
			return ai.LessThan(aj)
		}
		ni, nj := names[ids[i]], names[ids[j]]
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})

	increment := Cent
	if remainder.IsNegative() {
		increment = Cent.Neg()
	}

	left := remainder
	for _, id := range ids {
		if left.IsZero() {
			break
		}
		adjusted[id] = adjusted[id].Sub(increment)
		left = left.Sub(increment)
	}
	if !left.IsZero() {
		return nil, roundingErrorf("remainder %s not exhausted after adjusting %d balances", left, len(ids))
	}

	return adjusted, nil
}

func copyBalances(balances map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(balances))
	for id, b := range balances {
		out[id] = b
	}
	return out
}

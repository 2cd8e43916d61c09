package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tripledger/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func person(t *testing.T, name string) models.Person {
	t.Helper()
	p, err := models.NewPerson(name)
	if err != nil {
		t.Fatalf("NewPerson(%q) failed: %v", name, err)
	}
	return p
}

func TestEqualShare(t *testing.T) {
	alice := person(t, "Alice")
	bob := person(t, "Bob")

	a, err := models.NewActivity("Dinner", dec("100"), models.SinglePayer(alice.ID),
		[]string{alice.ID, bob.ID}, models.StrategyEqual, nil, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	for _, p := range []models.Person{alice, bob} {
		share, err := Share(a, p.ID)
		if err != nil {
			t.Fatalf("Share(%s) failed: %v", p.Name, err)
		}
		if !share.Equal(dec("50.00")) {
			t.Errorf("%s share = %s, want 50.00", p.Name, share)
		}
	}
}

func TestEqualShareRoundsWithBankersRounding(t *testing.T) {
	a1 := person(t, "P1")
	a2 := person(t, "P2")
	a3 := person(t, "P3")

	a, err := models.NewActivity("Groceries", dec("100"), models.SinglePayer(a1.ID),
		[]string{a1.ID, a2.ID, a3.ID}, models.StrategyEqual, nil, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	share, err := Share(a, a2.ID)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if !share.Equal(dec("33.33")) {
		t.Errorf("share = %s, want 33.33", share)
	}
}

func TestWeightedShare(t *testing.T) {
	b := person(t, "B")
	c := person(t, "C")
	weights := map[string]decimal.Decimal{b.ID: dec("2"), c.ID: dec("1")}

	a, err := models.NewActivity("Taxi", dec("90"), models.SinglePayer(c.ID),
		[]string{b.ID, c.ID}, models.StrategyWeighted, weights, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	shareB, err := Share(a, b.ID)
	if err != nil {
		t.Fatalf("Share(B) failed: %v", err)
	}
	if !shareB.Equal(dec("60.00")) {
		t.Errorf("B share = %s, want 60.00", shareB)
	}

	shareC, err := Share(a, c.ID)
	if err != nil {
		t.Fatalf("Share(C) failed: %v", err)
	}
	if !shareC.Equal(dec("30.00")) {
		t.Errorf("C share = %s, want 30.00", shareC)
	}
}

func TestFixedShare(t *testing.T) {
	alice := person(t, "Alice")
	bob := person(t, "Bob")
	shares := map[string]decimal.Decimal{alice.ID: dec("70"), bob.ID: dec("30")}

	a, err := models.NewActivity("Museum", dec("100"), models.SinglePayer(bob.ID),
		[]string{alice.ID, bob.ID}, models.StrategyFixedShares, nil, shares)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	got, err := Share(a, alice.ID)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if !got.Equal(dec("70.00")) {
		t.Errorf("Alice share = %s, want 70.00", got)
	}
}

func TestShareErrors(t *testing.T) {
	alice := person(t, "Alice")
	bob := person(t, "Bob")
	carol := person(t, "Carol")

	t.Run("non-participant equal share query", func(t *testing.T) {
		a, err := models.NewActivity("Dinner", dec("100"), models.SinglePayer(alice.ID),
			[]string{alice.ID, bob.ID}, models.StrategyEqual, nil, nil)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		_, err = Share(a, carol.ID)
		var se *StrategyError
		if !errors.As(err, &se) {
			t.Errorf("expected StrategyError, got %v", err)
		}
	})

	t.Run("participant missing from weights", func(t *testing.T) {
		weights := map[string]decimal.Decimal{alice.ID: dec("1")}
		a, err := models.NewActivity("Taxi", dec("90"), models.SinglePayer(alice.ID),
			[]string{alice.ID, bob.ID}, models.StrategyWeighted, weights, nil)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		_, err = Share(a, bob.ID)
		var se *StrategyError
		if !errors.As(err, &se) {
			t.Errorf("expected StrategyError, got %v", err)
		}
	})

	t.Run("participant missing from shares", func(t *testing.T) {
		shares := map[string]decimal.Decimal{alice.ID: dec("100")}
		a, err := models.NewActivity("Museum", dec("100"), models.SinglePayer(alice.ID),
			[]string{alice.ID, bob.ID}, models.StrategyFixedShares, nil, shares)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		_, err = Share(a, bob.ID)
		var se *StrategyError
		if !errors.As(err, &se) {
			t.Errorf("expected StrategyError, got %v", err)
		}
	})
}

func TestAllSharesCoversExactlyTheParticipantSet(t *testing.T) {
	alice := person(t, "Alice")
	bob := person(t, "Bob")
	carol := person(t, "Carol")
	// Weights cover an extra person; the result must still be exactly the
	// participant set.
	weights := map[string]decimal.Decimal{
		alice.ID: dec("1"),
		bob.ID:   dec("1"),
		carol.ID: dec("2"),
	}

	a, err := models.NewActivity("Boat", dec("80"), models.SinglePayer(alice.ID),
		[]string{alice.ID, bob.ID}, models.StrategyWeighted, weights, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	shares, err := AllShares(a)
	if err != nil {
		t.Fatalf("AllShares failed: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("shares count = %d, want 2", len(shares))
	}
	if _, ok := shares[carol.ID]; ok {
		t.Error("non-participant must not appear in shares")
	}
	// Weights renormalized over all three entries: 1/4 of 80 each.
	if !shares[alice.ID].Equal(dec("20.00")) {
		t.Errorf("Alice share = %s, want 20.00", shares[alice.ID])
	}
}

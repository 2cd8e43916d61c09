package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustPerson(t *testing.T, name string) Person {
	t.Helper()
	p, err := NewPerson(name)
	if err != nil {
		t.Fatalf("NewPerson(%q) failed: %v", name, err)
	}
	return p
}

func TestNewPerson(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain name", in: "Alice"},
		{name: "name is trimmed", in: "  Bob  "},
		{name: "empty name rejected", in: "", wantErr: true},
		{name: "whitespace-only name rejected", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPerson(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPerson(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if p.ID == "" {
				t.Error("expected generated id")
			}
			if p.Name != strings.TrimSpace(tt.in) {
				t.Errorf("name = %q, want trimmed %q", p.Name, strings.TrimSpace(tt.in))
			}
		})
	}
}

func TestPeopleMayShareAName(t *testing.T) {
	a := mustPerson(t, "Sam")
	b := mustPerson(t, "Sam")
	if a.ID == b.ID {
		t.Fatal("two people must get distinct ids")
	}

	e := NewEvent("Trip", "USD")
	if err := e.AddMember(a); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if err := e.AddMember(b); err != nil {
		t.Fatalf("second Sam should be allowed: %v", err)
	}
	if len(e.People()) != 2 {
		t.Errorf("people count = %d, want 2", len(e.People()))
	}
}

func TestNewActivityValidation(t *testing.T) {
	alice := mustPerson(t, "Alice")
	bob := mustPerson(t, "Bob")
	participants := []string{alice.ID, bob.ID}

	tests := []struct {
		name    string
		build   func() (*Activity, error)
		wantErr string
	}{
		{
			name: "valid equal split",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, StrategyEqual, nil, nil)
			},
		},
		{
			name: "empty description",
			build: func() (*Activity, error) {
				return NewActivity("  ", dec("100"), SinglePayer(alice.ID), participants, StrategyEqual, nil, nil)
			},
			wantErr: "description",
		},
		{
			name: "negative amount",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("-1"), SinglePayer(alice.ID), participants, StrategyEqual, nil, nil)
			},
			wantErr: "non-negative",
		},
		{
			name: "no participants",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), nil, StrategyEqual, nil, nil)
			},
			wantErr: "participant",
		},
		{
			name: "duplicate participant",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), []string{alice.ID, alice.ID}, StrategyEqual, nil, nil)
			},
			wantErr: "twice",
		},
		{
			name: "no payer",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), Payer{}, participants, StrategyEqual, nil, nil)
			},
			wantErr: "payer",
		},
		{
			name: "multi-payer sum mismatch",
			build: func() (*Activity, error) {
				payer := SplitPayer([]Payment{
					{PersonID: alice.ID, Amount: dec("40")},
					{PersonID: bob.ID, Amount: dec("40")},
				})
				return NewActivity("Dinner", dec("100"), payer, participants, StrategyEqual, nil, nil)
			},
			wantErr: "sum to",
		},
		{
			name: "multi-payer within cent tolerance",
			build: func() (*Activity, error) {
				payer := SplitPayer([]Payment{
					{PersonID: alice.ID, Amount: dec("50.00")},
					{PersonID: bob.ID, Amount: dec("49.99")},
				})
				return NewActivity("Dinner", dec("100"), payer, participants, StrategyEqual, nil, nil)
			},
		},
		{
			name: "negative payer amount",
			build: func() (*Activity, error) {
				payer := SplitPayer([]Payment{
					{PersonID: alice.ID, Amount: dec("110")},
					{PersonID: bob.ID, Amount: dec("-10")},
				})
				return NewActivity("Dinner", dec("100"), payer, participants, StrategyEqual, nil, nil)
			},
			wantErr: "non-negative",
		},
		{
			name: "weighted without weights",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, StrategyWeighted, nil, nil)
			},
			wantErr: "weights",
		},
		{
			name: "weights summing to zero",
			build: func() (*Activity, error) {
				weights := map[string]decimal.Decimal{alice.ID: dec("0"), bob.ID: dec("0")}
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, StrategyWeighted, weights, nil)
			},
			wantErr: "positive",
		},
		{
			name: "fixed shares mismatch",
			build: func() (*Activity, error) {
				shares := map[string]decimal.Decimal{alice.ID: dec("60"), bob.ID: dec("50")}
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, StrategyFixedShares, nil, shares)
			},
			wantErr: "sum to",
		},
		{
			name: "negative fixed share",
			build: func() (*Activity, error) {
				shares := map[string]decimal.Decimal{alice.ID: dec("110"), bob.ID: dec("-10")}
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, StrategyFixedShares, nil, shares)
			},
			wantErr: "non-negative",
		},
		{
			name: "unknown strategy",
			build: func() (*Activity, error) {
				return NewActivity("Dinner", dec("100"), SinglePayer(alice.ID), participants, Strategy("HALVSIES"), nil, nil)
			},
			wantErr: "strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWeightsAreRenormalizedOnce(t *testing.T) {
	b := mustPerson(t, "B")
	c := mustPerson(t, "C")
	weights := map[string]decimal.Decimal{b.ID: dec("2"), c.ID: dec("1")}

	a, err := NewActivity("Taxi", dec("90"), SinglePayer(b.ID), []string{b.ID, c.ID}, StrategyWeighted, weights, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}

	wb, ok := a.Weight(b.ID)
	if !ok {
		t.Fatal("expected weight for B")
	}
	twoThirds := dec("2").Div(dec("3"))
	if !wb.Equal(twoThirds) {
		t.Errorf("weight B = %s, want %s", wb, twoThirds)
	}

	// Caller's map stays untouched.
	if !weights[b.ID].Equal(dec("2")) {
		t.Error("input weight map was mutated")
	}
}

func TestSinglePayerNormalizesToFullAmount(t *testing.T) {
	alice := mustPerson(t, "Alice")
	a, err := NewActivity("Hotel", dec("250.50"), SinglePayer(alice.ID), []string{alice.ID}, StrategyEqual, nil, nil)
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}
	payments := a.Payments()
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
	if payments[0].PersonID != alice.ID || !payments[0].Amount.Equal(dec("250.50")) {
		t.Errorf("payment = %+v, want full amount by Alice", payments[0])
	}
}

func TestEventReferentialIntegrity(t *testing.T) {
	e := NewEvent("Trip", "")
	if e.Currency() != DefaultCurrency {
		t.Errorf("currency = %s, want %s", e.Currency(), DefaultCurrency)
	}

	alice, err := e.AddPerson("Alice")
	if err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}
	outsider := mustPerson(t, "Mallory")

	t.Run("non-member payer rejected", func(t *testing.T) {
		a, err := NewActivity("Dinner", dec("10"), SinglePayer(outsider.ID), []string{alice.ID}, StrategyEqual, nil, nil)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		err = e.AddActivity(a)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(e.Activities()) != 0 {
			t.Error("rejected activity must not be appended")
		}
	})

	t.Run("non-member participant rejected", func(t *testing.T) {
		a, err := NewActivity("Dinner", dec("10"), SinglePayer(alice.ID), []string{outsider.ID}, StrategyEqual, nil, nil)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		err = e.AddActivity(a)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("member activity accepted", func(t *testing.T) {
		a, err := NewActivity("Dinner", dec("10"), SinglePayer(alice.ID), []string{alice.ID}, StrategyEqual, nil, nil)
		if err != nil {
			t.Fatalf("NewActivity failed: %v", err)
		}
		if err := e.AddActivity(a); err != nil {
			t.Fatalf("AddActivity failed: %v", err)
		}
		if len(e.Activities()) != 1 {
			t.Errorf("activities = %d, want 1", len(e.Activities()))
		}
	})
}

func TestNewTransferQuantizesAmount(t *testing.T) {
	alice := mustPerson(t, "Alice")
	bob := mustPerson(t, "Bob")

	tr, err := NewTransfer(bob, alice, dec("10.555"))
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	if !tr.Amount.Equal(dec("10.56")) {
		t.Errorf("amount = %s, want 10.56", tr.Amount)
	}

	if _, err := NewTransfer(bob, alice, dec("-1")); err == nil {
		t.Error("expected error for negative amount")
	}
}

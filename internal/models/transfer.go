package models

import (
	"github.com/shopspring/decimal"

	"tripledger/internal/money"
)

// Transfer is one cash movement from a debtor to a creditor. The amount
// is quantized to two decimal places on construction.
type Transfer struct {
	From   Person
	To     Person
	Amount decimal.Decimal
}

// NewTransfer validates and constructs a transfer.
func NewTransfer(from, to Person, amount decimal.Decimal) (Transfer, error) {
	if amount.IsNegative() {
		return Transfer{}, Validationf("transfer amount must be non-negative, got %s", amount)
	}
	return Transfer{From: from, To: to, Amount: money.Round(amount)}, nil
}

package parser

import (
	"github.com/insightdelivered/finsight/internal/models"
)

// ColumnarParser handles statements with separate withdrawal and deposit
// columns followed by a running balance (HDFC-style):
//
//	Date | Narration | Withdrawal | Deposit | Balance
//	"02/09/25 UPI-GROCERY MART 2,085.06 0.00 261,976.06"
//
// Which column is populated determines the direction directly.
type ColumnarParser struct{}

func (p *ColumnarParser) LayoutName() string { return "columnar (withdrawal/deposit)" }

func (p *ColumnarParser) Parse(lines []models.RawLine) (*ParseResult, error) {
	return &ParseResult{
		Layout:       models.LayoutColumnar,
		Context:      extractContext(lines),
		Transactions: walkLines(lines, p.interpret),
	}, nil
}

func (p *ColumnarParser) interpret(tokens []amountToken) (rowValues, bool) {
	switch {
	case len(tokens) >= 3:
		withdrawal := tokens[len(tokens)-3]
		deposit := tokens[len(tokens)-2]
		balance := tokens[len(tokens)-1].value

		vals := rowValues{printed: &balance}
		switch {
		case withdrawal.value.IsPositive() && deposit.value.IsZero():
			vals.amount = withdrawal.value
			vals.dir = models.Debit
		case deposit.value.IsPositive() && withdrawal.value.IsZero():
			vals.amount = deposit.value
			vals.dir = models.Credit
		default:
			// Both columns populated, or both zero: the row alone cannot
			// say which way the money moved. Leave amount unset so the
			// reconciler can recover it from the balance delta.
			vals.dir = models.Unknown
		}
		return vals, true

	case len(tokens) == 2:
		// One column empty in print: amount plus balance.
		amount := tokens[0]
		balance := tokens[1].value
		if amount.value.IsZero() {
			return rowValues{}, false
		}
		return rowValues{
			amount:  amount.value,
			printed: &balance,
			dir:     directionFromToken(amount),
		}, true

	default:
		amount := tokens[0]
		if amount.value.IsZero() {
			return rowValues{}, false
		}
		return rowValues{amount: amount.value, dir: directionFromToken(amount)}, true
	}
}

// BalanceParser handles statements with one amount column and a running
// balance:
//
//	Date | Description | Amount | Balance
//	"15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"
//
// The row does not say whether the amount went in or out; the reconciler
// infers the direction from the balance progression (or a Cr/Dr suffix).
type BalanceParser struct{}

func (p *BalanceParser) LayoutName() string { return "single amount + running balance" }

func (p *BalanceParser) Parse(lines []models.RawLine) (*ParseResult, error) {
	return &ParseResult{
		Layout:       models.LayoutBalance,
		Context:      extractContext(lines),
		Transactions: walkLines(lines, p.interpret),
	}, nil
}

func (p *BalanceParser) interpret(tokens []amountToken) (rowValues, bool) {
	if len(tokens) >= 2 {
		amount := tokens[len(tokens)-2]
		balance := tokens[len(tokens)-1].value
		if amount.value.IsZero() {
			return rowValues{}, false
		}
		return rowValues{
			amount:  amount.value,
			printed: &balance,
			dir:     directionFromToken(amount),
		}, true
	}

	amount := tokens[0]
	if amount.value.IsZero() {
		return rowValues{}, false
	}
	return rowValues{amount: amount.value, dir: directionFromToken(amount)}, true
}

// SignedParser handles statements printing a single amount column and no
// running balance. The amount's own sign or Cr/Dr suffix carries the
// direction; unmarked rows stay Unknown and end up flagged ambiguous.
type SignedParser struct{}

func (p *SignedParser) LayoutName() string { return "single signed amount" }

func (p *SignedParser) Parse(lines []models.RawLine) (*ParseResult, error) {
	return &ParseResult{
		Layout:       models.LayoutSigned,
		Context:      extractContext(lines),
		Transactions: walkLines(lines, p.interpret),
	}, nil
}

func (p *SignedParser) interpret(tokens []amountToken) (rowValues, bool) {
	amount := tokens[len(tokens)-1]
	if amount.value.IsZero() {
		return rowValues{}, false
	}
	return rowValues{amount: amount.value, dir: directionFromToken(amount)}, true
}

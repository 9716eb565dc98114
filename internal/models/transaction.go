package models

import "github.com/shopspring/decimal"

// Direction says whether a transaction increases or decreases the balance.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
	// Unknown is a provisional value assigned by the parser when the line
	// itself does not reveal the direction. The reconciler resolves it from
	// balance deltas; rows that stay unknown are marked Ambiguous.
	Unknown Direction = "unknown"
)

// RawLine is one line of extracted statement text with its source position.
type RawLine struct {
	Page int    `json:"page"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Transaction represents a single statement transaction.
// Amount is always positive; the sign lives in Direction.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"type"`
	Category    string          `json:"category,omitempty"`

	// PrintedBalance is the running balance printed on the statement row,
	// if the layout carries one. Used for reconciliation, not aggregation.
	PrintedBalance *decimal.Decimal `json:"balance,omitempty"`

	// Source position of the row the transaction was parsed from.
	Page int `json:"page,omitempty"`
	Line int `json:"line,omitempty"`

	// Ambiguous rows could not be assigned a direction. They are retained
	// for review but excluded from totals and running-balance computation.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// BalanceWarning is set when the computed running balance disagrees
	// with the printed one beyond tolerance.
	BalanceWarning string `json:"balanceWarning,omitempty"`
}

// Layout identifies the detected statement table shape.
type Layout string

const (
	// LayoutColumnar has separate withdrawal and deposit columns plus a balance.
	LayoutColumnar Layout = "columnar"
	// LayoutBalance has a single amount column followed by a running balance.
	LayoutBalance Layout = "balance"
	// LayoutSigned has a single, possibly signed or Cr/Dr-suffixed amount.
	LayoutSigned Layout = "signed"
)

// StatementContext holds the balances the statement declares about itself.
// Nil means the document did not print the value; absence must stay
// distinguishable from a verified zero.
type StatementContext struct {
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
	TotalDebits    *decimal.Decimal
	TotalCredits   *decimal.Decimal
	Currency       string
}

// SummaryStats carries secondary statistics about the transaction set.
type SummaryStats struct {
	CreditCount   int          `json:"creditCount"`
	DebitCount    int          `json:"debitCount"`
	LargestCredit *Transaction `json:"largestCredit,omitempty"`
	LargestDebit  *Transaction `json:"largestDebit,omitempty"`
}

// FinancialSummary is the engine's output: the reconciled, categorized
// transaction set plus the totals derived from it.
type FinancialSummary struct {
	OpeningBalance *decimal.Decimal `json:"openingBalance"`
	ClosingBalance *decimal.Decimal `json:"closingBalance"`

	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetChange     decimal.Decimal `json:"netChange"`

	Transactions     []Transaction `json:"transactions"`
	TransactionCount int           `json:"transactionCount"`

	// Keys are lower-case category names; projections capitalize for display.
	CategoryBreakdown map[string]decimal.Decimal `json:"categoryBreakdown"`
	IncomeBreakdown   map[string]decimal.Decimal `json:"incomeBreakdown"`

	ClosingBalanceMismatch bool `json:"closingBalanceMismatch,omitempty"`
	BalanceWarnings        int  `json:"balanceWarnings,omitempty"`

	Stats *SummaryStats `json:"stats,omitempty"`
}

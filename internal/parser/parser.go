package parser

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
)

// StatementParser turns raw statement lines into candidate transactions.
// Direction may be provisional (Unknown); the reconciler settles it.
type StatementParser interface {
	// Parse consumes the full line sequence and returns candidate
	// transactions plus the balances the statement declares about itself.
	Parse(lines []models.RawLine) (*ParseResult, error)
	// LayoutName returns the human-readable layout name.
	LayoutName() string
}

// ParseResult is the parser stage output.
type ParseResult struct {
	Layout       models.Layout
	Context      models.StatementContext
	Transactions []models.Transaction
}

// New returns the parser for the given layout.
func New(layout models.Layout) (StatementParser, error) {
	switch layout {
	case models.LayoutColumnar:
		return &ColumnarParser{}, nil
	case models.LayoutBalance:
		return &BalanceParser{}, nil
	case models.LayoutSigned:
		return &SignedParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported statement layout: %q", layout)
	}
}

// DetectLayout inspects candidate transaction lines and votes on the table
// shape by how many amounts each line carries: three or more means separate
// withdrawal/deposit columns plus balance, two means amount plus running
// balance, one means a lone (possibly signed) amount column.
func DetectLayout(lines []models.RawLine) models.Layout {
	votes := map[models.Layout]int{}
	for _, ln := range lines {
		if isNoiseLine(ln.Text) || isSummaryLine(ln.Text) {
			continue
		}
		if _, pos := findDate(ln.Text); pos < 0 || pos > maxDateOffset {
			continue
		}
		switch n := len(extractAmounts(ln.Text)); {
		case n >= 3:
			votes[models.LayoutColumnar]++
		case n == 2:
			votes[models.LayoutBalance]++
		case n == 1:
			votes[models.LayoutSigned]++
		}
	}

	best := models.LayoutBalance
	bestVotes := 0
	// Fixed order keeps detection deterministic on ties.
	for _, l := range []models.Layout{models.LayoutColumnar, models.LayoutBalance, models.LayoutSigned} {
		if votes[l] > bestVotes {
			best = l
			bestVotes = votes[l]
		}
	}
	return best
}

// maxDateOffset is how far into a line a date may start and still count as
// a transaction row. Allows serial-number prefixes like "12  01-11-2025 ...".
const maxDateOffset = 15

// rowValues is a layout interpreter's reading of one transaction row.
type rowValues struct {
	amount  decimal.Decimal
	printed *decimal.Decimal
	dir     models.Direction
}

// interpretFunc maps the amount tokens of a candidate row to row values.
// Returning false drops the row.
type interpretFunc func(tokens []amountToken) (rowValues, bool)

// walkLines runs the shared line scan: date-pattern first, heuristic noise
// filters, continuation rows folded into the previous description, and the
// layout-specific interpreter applied to each candidate row.
func walkLines(lines []models.RawLine, interpret interpretFunc) []models.Transaction {
	var txns []models.Transaction

	for _, ln := range lines {
		text := ln.Text
		if isNoiseLine(text) || isSummaryLine(text) {
			continue
		}

		date, pos := findDate(text)
		if pos < 0 || pos > maxDateOffset {
			// No usable date. A line without date or amounts continues the
			// previous description; anything else is noise.
			if len(txns) > 0 && len(extractAmounts(text)) == 0 {
				last := &txns[len(txns)-1]
				last.Description += " " + text
			}
			continue
		}

		tokens := extractAmounts(text)
		if len(tokens) == 0 {
			continue
		}

		vals, ok := interpret(tokens)
		if !ok {
			continue
		}

		txns = append(txns, models.Transaction{
			Date:           normalizeDate(date),
			Description:    stripToDescription(text, date),
			Amount:         vals.amount,
			Direction:      vals.dir,
			PrintedBalance: vals.printed,
			Page:           ln.Page,
			Line:           ln.Line,
		})
	}

	return txns
}

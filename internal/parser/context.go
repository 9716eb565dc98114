package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
)

// Inline "Opening Balance : 2,89,846.56" style labels.
var (
	openingInlinePattern = regexp.MustCompile(`(?i)opening\s*balance\s*[:\-]?\s*(\d{1,3}(?:,\d{2,3})*\.\d{2}|\d+\.\d{2})`)
	closingInlinePattern = regexp.MustCompile(`(?i)closing\s*balance\s*[:\-]?\s*(\d{1,3}(?:,\d{2,3})*\.\d{2}|\d+\.\d{2})`)
)

// Some banks print the whole account summary as one row of six numbers:
// opening balance, debit count, credit count, total debits, total credits,
// closing balance.
var summaryRowPattern = func() *regexp.Regexp {
	amt := `(\d{1,3}(?:,\d{2,3})*\.\d{2}|\d+\.\d{2})`
	return regexp.MustCompile(amt + `\s+(\d+)\s+(\d+)\s+` + amt + `\s+` + amt + `\s+` + amt)
}()

// extractContext scans the statement for the balances it declares about
// itself: opening/closing balances and total debit/credit figures. All are
// optional; absent values stay nil so absence is distinguishable from zero.
func extractContext(lines []models.RawLine) models.StatementContext {
	var ctx models.StatementContext

	for i, ln := range lines {
		// Table headers like "Narration Withdrawal Deposit Closing Balance"
		// must not be read as balance labels. Headers still often carry the
		// currency symbol, so keep that much.
		if isNoiseLine(ln.Text) {
			if ctx.Currency == "" {
				ctx.Currency = detectCurrency(ln.Text)
			}
			continue
		}

		lower := strings.ToLower(ln.Text)

		// Totals rows come first: an HDFC-style "Total Debits ... Opening
		// Balance ..." line would otherwise be misread as an opening line.
		if ctx.TotalDebits == nil && strings.Contains(lower, "total") && strings.Contains(lower, "debit") {
			if amounts := nonZeroAmounts(ln.Text); len(amounts) > 0 {
				ctx.TotalDebits = ptr(amounts[0])
				if ctx.OpeningBalance == nil && strings.Contains(lower, "opening") && len(amounts) >= 2 {
					ctx.OpeningBalance = ptr(amounts[1])
				}
			}
		}
		if ctx.TotalCredits == nil && strings.Contains(lower, "total") && strings.Contains(lower, "credit") {
			if amounts := nonZeroAmounts(ln.Text); len(amounts) > 0 {
				ctx.TotalCredits = ptr(amounts[0])
				if ctx.ClosingBalance == nil && strings.Contains(lower, "closing") && len(amounts) >= 2 {
					ctx.ClosingBalance = ptr(amounts[1])
				}
			}
		}

		// Prefer the inline "label: amount" form; a line carrying both an
		// opening and a closing label would otherwise hand the same trailing
		// amount to both.
		if ctx.OpeningBalance == nil && isOpeningLine(lower) {
			if m := openingInlinePattern.FindStringSubmatch(ln.Text); m != nil {
				if v, err := parseAmount(m[1]); err == nil {
					ctx.OpeningBalance = ptr(v)
				}
			} else {
				ctx.OpeningBalance = balanceNear(lines, i)
			}
		}
		if ctx.ClosingBalance == nil && isClosingLine(lower) {
			if m := closingInlinePattern.FindStringSubmatch(ln.Text); m != nil {
				if v, err := parseAmount(m[1]); err == nil {
					ctx.ClosingBalance = ptr(v)
				}
			} else {
				ctx.ClosingBalance = balanceNear(lines, i)
			}
		}

		if ctx.Currency == "" {
			ctx.Currency = detectCurrency(ln.Text)
		}
	}

	allText := joinLines(lines)
	if ctx.OpeningBalance == nil {
		if m := openingInlinePattern.FindStringSubmatch(allText); m != nil {
			if v, err := parseAmount(m[1]); err == nil {
				ctx.OpeningBalance = ptr(v)
			}
		}
	}
	if ctx.ClosingBalance == nil {
		if m := closingInlinePattern.FindStringSubmatch(allText); m != nil {
			if v, err := parseAmount(m[1]); err == nil {
				ctx.ClosingBalance = ptr(v)
			}
		}
	}

	if m := summaryRowPattern.FindStringSubmatch(allText); m != nil {
		fill := func(dst **decimal.Decimal, raw string) {
			if *dst != nil {
				return
			}
			if v, err := parseAmount(raw); err == nil {
				*dst = ptr(v)
			}
		}
		fill(&ctx.OpeningBalance, m[1])
		fill(&ctx.TotalDebits, m[4])
		fill(&ctx.TotalCredits, m[5])
		fill(&ctx.ClosingBalance, m[6])
	}

	return ctx
}

func isOpeningLine(lower string) bool {
	if strings.Contains(lower, "total") {
		return false
	}
	return (strings.Contains(lower, "opening") && strings.Contains(lower, "balance")) ||
		strings.Contains(lower, "balance brought forward") ||
		strings.Contains(lower, "start balance")
}

func isClosingLine(lower string) bool {
	if strings.Contains(lower, "total") {
		return false
	}
	return (strings.Contains(lower, "closing") && strings.Contains(lower, "balance")) ||
		strings.Contains(lower, "balance carried forward") ||
		strings.Contains(lower, "end balance")
}

// balanceNear takes the last amount on the labelled line, or the first
// amount on the following line when the value wrapped.
func balanceNear(lines []models.RawLine, i int) *decimal.Decimal {
	if amounts := nonZeroAmounts(lines[i].Text); len(amounts) > 0 {
		return ptr(amounts[len(amounts)-1])
	}
	if i+1 < len(lines) {
		if amounts := nonZeroAmounts(lines[i+1].Text); len(amounts) > 0 {
			return ptr(amounts[0])
		}
	}
	return nil
}

func nonZeroAmounts(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, t := range extractAmounts(line) {
		if t.value.IsPositive() {
			out = append(out, t.value)
		}
	}
	return out
}

func detectCurrency(line string) string {
	switch {
	case strings.ContainsRune(line, '£'):
		return "GBP"
	case strings.ContainsRune(line, '₹'):
		return "INR"
	case strings.ContainsRune(line, '€'):
		return "EUR"
	case strings.Contains(line, "INR"):
		return "INR"
	case strings.Contains(line, "USD") || strings.ContainsRune(line, '$'):
		return "USD"
	default:
		return ""
	}
}

func joinLines(lines []models.RawLine) string {
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		parts = append(parts, ln.Text)
	}
	return strings.Join(parts, "\n")
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

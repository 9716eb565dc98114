package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
)

// Date patterns covering the formats that show up across statements:
// DD/MM/YYYY, DD-MM-YY, DD.MM.YYYY, "01 Nov 2025", "01-Nov-25".
var (
	dateNumericPattern = regexp.MustCompile(`\b(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})\b`)
	dateTextPattern    = regexp.MustCompile(`(?i)\b(\d{1,2}[-\s](?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*[-\s]\d{2,4})\b`)
)

// amountPattern matches monetary amounts in Western (1,234,567.89) and
// Indian (1,23,456.78) grouping, with an optional sign and Cr/Dr suffix.
var amountPattern = regexp.MustCompile(`(?i)(-?\d{1,3}(?:,\d{2,3})*\.\d{2}|-?\d+\.\d{2})(?:\s*(cr|dr))?`)

// amountToken is one monetary value found on a line.
type amountToken struct {
	value    decimal.Decimal // absolute value
	negative bool
	suffix   string // "CR", "DR" or ""
}

// findDate returns the first date on the line and its byte offset,
// or ("", -1) when the line has no recognizable date.
func findDate(line string) (string, int) {
	date := ""
	pos := -1
	if loc := dateNumericPattern.FindStringIndex(line); loc != nil {
		date = line[loc[0]:loc[1]]
		pos = loc[0]
	}
	if loc := dateTextPattern.FindStringIndex(line); loc != nil && (pos < 0 || loc[0] < pos) {
		date = line[loc[0]:loc[1]]
		pos = loc[0]
	}
	return date, pos
}

// normalizeDate rewrites separators so all dates come out as DD/MM/YYYY-ish
// with slashes (e.g. "01-11-2025" -> "01/11/2025", "01 Nov 2025" -> "01/Nov/2025").
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	s = regexp.MustCompile(`[-.\s]+`).ReplaceAllString(s, "/")
	return s
}

// parseAmount converts "1,23,456.78", "-£1,234.56" etc. to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"£", "$", "€", "₹", ",", " ", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// extractAmounts returns every monetary amount on the line, in order.
// Zero amounts are kept: an empty withdrawal column printed as 0.00 is
// meaningful for columnar layouts.
func extractAmounts(line string) []amountToken {
	var tokens []amountToken
	for _, m := range amountPattern.FindAllStringSubmatch(line, -1) {
		raw := m[1]
		value, err := parseAmount(raw)
		if err != nil {
			continue
		}
		tokens = append(tokens, amountToken{
			value:    value.Abs(),
			negative: strings.HasPrefix(raw, "-"),
			suffix:   strings.ToUpper(m[2]),
		})
	}
	return tokens
}

// directionFromToken resolves a token's own markers: a minus sign or Dr
// suffix means debit, Cr means credit. Unmarked tokens stay Unknown.
func directionFromToken(t amountToken) models.Direction {
	switch {
	case t.suffix == "DR" || t.negative:
		return models.Debit
	case t.suffix == "CR":
		return models.Credit
	default:
		return models.Unknown
	}
}

var (
	pageNumberPattern = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)
	bareNumberPattern = regexp.MustCompile(`^\d+(\s*of\s*\d+)?$`)
	rulePattern       = regexp.MustCompile(`^[=\-_*#.]+$`)
)

// noiseKeywords flag headers, footers and account boilerplate that must
// never be parsed as transactions, even when they contain digits.
var noiseKeywords = []string{
	"account number", "account no", "a/c ", "sort code", "ifsc", "micr",
	"branch", "customer", "cust id", "statement period", "statement of",
	"generated", "registered", "disclaimer", "nomination", "gstin",
	"end of statement", "continued", "authorised", "regulated",
	"compensation scheme", "swiftbic", "iban",
}

// tableHeaderWords identify the column-header row of the transaction table.
var tableHeaderWords = []string{
	"description", "narration", "particulars", "details",
	"withdrawal", "deposit", "paid out", "paid in", "money out", "money in",
}

// isNoiseLine reports whether a line is a header, footer, page marker or
// other non-transaction content.
func isNoiseLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return true
	}
	lower := strings.ToLower(stripped)

	if pageNumberPattern.MatchString(lower) || bareNumberPattern.MatchString(lower) || rulePattern.MatchString(stripped) {
		return true
	}
	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	// Column-header rows mention the table columns but carry no real date.
	if strings.Contains(lower, "date") {
		for _, w := range tableHeaderWords {
			if strings.Contains(lower, w) {
				if _, pos := findDate(stripped); pos < 0 {
					return true
				}
			}
		}
	}
	return false
}

// isSummaryLine flags balance and totals rows. These are consumed by the
// statement-context scan and must not become transactions.
func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	summaryKeywords := []string{
		"opening balance", "closing balance", "brought forward",
		"carried forward", "start balance", "end balance",
		"total paid in", "total paid out", "total debit", "total credit",
		"total payments", "total receipts", "total withdrawal", "total deposit",
	}
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// stripToDescription removes the date, all amounts, any leading serial
// number and stray currency symbols, leaving the description text.
func stripToDescription(line, date string) string {
	s := line
	if date != "" {
		s = strings.Replace(s, date, "", 1)
	}
	s = amountPattern.ReplaceAllString(s, "")
	s = regexp.MustCompile(`^\s*\d+\s+`).ReplaceAllString(s, "")
	s = strings.Trim(s, "£$€₹|-— \t")
	return strings.Join(strings.Fields(s), " ")
}

// Package summary aggregates the reconciled, categorized transaction set
// into totals and per-category breakdowns. All arithmetic is fixed-point:
// the opening+credits-debits=closing identity must hold exactly.
package summary

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
	"github.com/insightdelivered/finsight/internal/reconcile"
)

// Build computes the FinancialSummary. Ambiguous rows are carried in the
// transaction list but contribute nothing to totals or breakdowns.
func Build(rec reconcile.Result) *models.FinancialSummary {
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	categoryBreakdown := make(map[string]decimal.Decimal)
	incomeBreakdown := make(map[string]decimal.Decimal)

	var stats models.SummaryStats
	var largestCredit, largestDebit *models.Transaction

	for i := range rec.Transactions {
		txn := rec.Transactions[i]
		if txn.Ambiguous {
			continue
		}

		key := strings.ToLower(txn.Category)
		if key == "" {
			// Uncategorized rows still count toward a bucket so the
			// breakdown sums stay equal to the totals.
			key = "other"
			if txn.Direction == models.Credit {
				key = "income"
			}
		}

		if txn.Direction == models.Credit {
			totalIncome = totalIncome.Add(txn.Amount)
			incomeBreakdown[key] = incomeBreakdown[key].Add(txn.Amount)
			stats.CreditCount++
			if largestCredit == nil || txn.Amount.GreaterThan(largestCredit.Amount) {
				largestCredit = &rec.Transactions[i]
			}
		} else {
			totalExpenses = totalExpenses.Add(txn.Amount)
			categoryBreakdown[key] = categoryBreakdown[key].Add(txn.Amount)
			stats.DebitCount++
			if largestDebit == nil || txn.Amount.GreaterThan(largestDebit.Amount) {
				largestDebit = &rec.Transactions[i]
			}
		}
	}

	stats.LargestCredit = largestCredit
	stats.LargestDebit = largestDebit

	return &models.FinancialSummary{
		OpeningBalance:         rec.OpeningBalance,
		ClosingBalance:         rec.ClosingBalance,
		TotalIncome:            totalIncome,
		TotalExpenses:          totalExpenses,
		NetChange:              totalIncome.Sub(totalExpenses),
		Transactions:           rec.Transactions,
		TransactionCount:       len(rec.Transactions),
		CategoryBreakdown:      categoryBreakdown,
		IncomeBreakdown:        incomeBreakdown,
		ClosingBalanceMismatch: rec.ClosingBalanceMismatch,
		BalanceWarnings:        rec.WarningCount,
		Stats:                  &stats,
	}
}

// PercentShare returns part as a percentage of total, rounded to one
// decimal place. Percentages are derived at presentation time and never
// stored, so they cannot go stale against the aggregates.
func PercentShare(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).DivRound(total, 1)
}

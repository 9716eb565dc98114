// Package reconcile validates parsed transactions against the balances the
// statement prints, resolves provisional directions from balance deltas,
// and computes the verified opening/closing pair.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
)

// DefaultTolerance is the maximum allowed gap between a computed running
// balance and the printed one, in statement currency units.
var DefaultTolerance = decimal.New(1, -2) // 0.01

// Result is the reconciler stage output. OpeningBalance and ClosingBalance
// stay nil when the statement printed no opening balance: absence must not
// collapse into a verified zero.
type Result struct {
	Transactions           []models.Transaction
	OpeningBalance         *decimal.Decimal
	ClosingBalance         *decimal.Decimal
	ClosingBalanceMismatch bool
	WarningCount           int
}

// Reconcile folds over the transactions in document order carrying the
// running balance. Rows whose printed balance disagrees beyond tolerance
// get a warning but never abort the run; rows whose direction cannot be
// established are marked ambiguous and excluded from all arithmetic.
func Reconcile(stmt models.StatementContext, txns []models.Transaction, tolerance decimal.Decimal) Result {
	res := Result{Transactions: make([]models.Transaction, 0, len(txns))}

	running := decimal.Zero
	haveRunning := false
	if stmt.OpeningBalance != nil {
		running = *stmt.OpeningBalance
		haveRunning = true
	}

	income := decimal.Zero
	expenses := decimal.Zero
	var lastPrinted *decimal.Decimal

	for _, txn := range txns {
		txn := txn

		if txn.Direction == models.Unknown {
			resolveDirection(&txn, running, haveRunning, tolerance)
		}
		if txn.Direction == models.Unknown || (!txn.Ambiguous && !txn.Amount.IsPositive()) {
			txn.Ambiguous = true
		}

		if txn.Ambiguous {
			// An ambiguous row still anchors the chain when it prints a
			// balance. Without this, a statement with no opening balance
			// would leave every later row unresolved too: the first row
			// can never be settled, but each row after it resolves by
			// comparing consecutive printed balances.
			if txn.PrintedBalance != nil {
				running = *txn.PrintedBalance
				haveRunning = true
			}
			res.Transactions = append(res.Transactions, txn)
			continue
		}

		if txn.Direction == models.Credit {
			income = income.Add(txn.Amount)
		} else {
			expenses = expenses.Add(txn.Amount)
		}

		if haveRunning {
			expected := running.Add(signed(txn))
			if txn.PrintedBalance != nil {
				diff := expected.Sub(*txn.PrintedBalance).Abs()
				if diff.GreaterThan(tolerance) && txn.BalanceWarning == "" {
					txn.BalanceWarning = fmt.Sprintf(
						"computed balance %s disagrees with printed %s",
						expected.StringFixed(2), txn.PrintedBalance.StringFixed(2))
				}
				// Resync to the printed value so one bad row does not
				// cascade warnings down the rest of the statement.
				running = *txn.PrintedBalance
			} else {
				running = expected
			}
		} else if txn.PrintedBalance != nil {
			running = *txn.PrintedBalance
			haveRunning = true
		}

		if txn.PrintedBalance != nil {
			lastPrinted = txn.PrintedBalance
		}

		res.Transactions = append(res.Transactions, txn)
	}

	for _, txn := range res.Transactions {
		if txn.BalanceWarning != "" {
			res.WarningCount++
		}
	}

	// The output closing balance is derived from the identity
	// opening + credits - debits, never from the (possibly noisy) printed
	// chain; printed values only cross-validate.
	if stmt.OpeningBalance != nil {
		opening := *stmt.OpeningBalance
		closing := opening.Add(income).Sub(expenses)
		res.OpeningBalance = &opening
		res.ClosingBalance = &closing

		if printed := printedClosing(stmt, lastPrinted); printed != nil {
			if closing.Sub(*printed).Abs().GreaterThan(tolerance) {
				res.ClosingBalanceMismatch = true
			}
		}
	}

	return res
}

// resolveDirection infers credit/debit from the balance delta of the row.
// A positive delta means money came in. When the parser could not read the
// amount (both columns populated), the delta magnitude recovers it; when it
// could, a delta/amount mismatch beyond tolerance earns a warning.
func resolveDirection(txn *models.Transaction, running decimal.Decimal, haveRunning bool, tolerance decimal.Decimal) {
	if txn.PrintedBalance == nil || !haveRunning {
		txn.Ambiguous = true
		return
	}

	delta := txn.PrintedBalance.Sub(running)
	switch {
	case delta.IsPositive():
		txn.Direction = models.Credit
	case delta.IsNegative():
		txn.Direction = models.Debit
	default:
		txn.Ambiguous = true
		return
	}

	if txn.Amount.IsZero() {
		txn.Amount = delta.Abs()
		return
	}
	if delta.Abs().Sub(txn.Amount).Abs().GreaterThan(tolerance) {
		txn.BalanceWarning = fmt.Sprintf(
			"row amount %s disagrees with balance delta %s",
			txn.Amount.StringFixed(2), delta.Abs().StringFixed(2))
	}
}

func signed(txn models.Transaction) decimal.Decimal {
	if txn.Direction == models.Credit {
		return txn.Amount
	}
	return txn.Amount.Neg()
}

func printedClosing(stmt models.StatementContext, lastPrinted *decimal.Decimal) *decimal.Decimal {
	if stmt.ClosingBalance != nil {
		return stmt.ClosingBalance
	}
	return lastPrinted
}

// Package export renders finance records as CSV for download endpoints.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
)

const dateLayout = "2006-01-02"

// WriteTransactionsCSV streams transactions as CSV. Tags are joined with
// semicolons so the column survives spreadsheet imports.
func WriteTransactionsCSV(w io.Writer, transactions []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "date", "type", "category", "amount",
		"original_amount", "original_currency", "account_id", "notes", "tags", "recurrence",
	}); err != nil {
		return err
	}
	for _, tx := range transactions {
		accountID := ""
		if tx.AccountID != nil {
			accountID = *tx.AccountID
		}
		record := []string{
			tx.ID,
			tx.Date.Format(dateLayout),
			tx.Type,
			tx.Category,
			formatAmount(tx.Amount),
			formatAmount(tx.OriginalAmount),
			tx.OriginalCurrency,
			accountID,
			tx.Notes,
			strings.Join(tx.Tags, ";"),
			tx.Recurrence,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDebtsCSV streams debts as CSV, one row per debt with payment totals.
func WriteDebtsCSV(w io.Writer, debts []domain.Debt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "description", "creditor", "balance", "initial_balance",
		"interest_rate", "minimum_payment", "due_date", "progress_paid_pct", "payments_recorded",
	}); err != nil {
		return err
	}
	for _, debt := range debts {
		record := []string{
			debt.ID,
			debt.Description,
			debt.Creditor,
			formatAmount(debt.Balance),
			formatAmount(debt.InitialBalance),
			formatAmount(debt.InterestRate),
			formatAmount(debt.MinimumPayment),
			debt.DueDate.Format(dateLayout),
			formatAmount(debt.ProgressPaid()),
			strconv.Itoa(len(debt.PaymentHistory)),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename builds an attachment name like "transactions_2026-08-29.csv".
func Filename(prefix string, now time.Time) string {
	return prefix + "_" + now.Format(dateLayout) + ".csv"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

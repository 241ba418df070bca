package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/finance/money"
	"github.com/finvault/FinVault/internal/logging"
)

// CurrencyConverter normalizes amounts to the base currency.
type CurrencyConverter interface {
	ToUSD(ctx context.Context, amount float64, fromCurrency string) (float64, error)
}

// BalanceRecomputer re-derives an account balance from its ledger. Implemented
// by AccountService; every transaction mutation that touches an account goes
// through it.
type BalanceRecomputer interface {
	RecomputeBalance(ctx context.Context, accountID string) (float64, error)
}

type TransactionService struct {
	repo      domain.TransactionRepository
	accounts  BalanceRecomputer
	converter CurrencyConverter
	logger    *logging.Logger
}

func NewTransactionService(repo domain.TransactionRepository, accounts BalanceRecomputer, converter CurrencyConverter, logger *logging.Logger) *TransactionService {
	return &TransactionService{
		repo:      repo,
		accounts:  accounts,
		converter: converter,
		logger:    logger.WithComponent("transactions"),
	}
}

// CreateTransaction persists a new transaction and recomputes the linked
// account's balance. The stored amount is normalized to USD; with splits
// present the parent amount is the split sum.
func (s *TransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) error {
	transaction.ID = uuid.NewString()
	if transaction.OriginalCurrency == "" {
		transaction.OriginalCurrency = "USD"
	}
	if transaction.Date.IsZero() {
		transaction.Date = time.Now()
	}
	transaction.OriginalAmount = transaction.Amount

	if len(transaction.Splits) > 0 {
		amounts := make([]float64, len(transaction.Splits))
		for i, split := range transaction.Splits {
			amounts[i] = split.Amount
		}
		transaction.Amount = money.Sum(amounts...)
	} else {
		converted, err := s.converter.ToUSD(ctx, transaction.Amount, transaction.OriginalCurrency)
		if err != nil {
			return financeErrors.NewDependencyError("currency conversion", err)
		}
		transaction.Amount = money.Round(converted)
	}

	if err := transaction.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, *transaction); err != nil {
		return err
	}

	if transaction.AccountID != nil {
		if _, err := s.accounts.RecomputeBalance(ctx, *transaction.AccountID); err != nil {
			s.logger.Error("balance recompute after create failed", "account_id", *transaction.AccountID, "error", err)
		}
	}
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	transaction, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.UserID != userID {
		return nil, financeErrors.ErrNotFound
	}
	return transaction, nil
}

func (s *TransactionService) GetUserTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	transactions, total, err := s.repo.FindByFilter(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	return transactions, total, nil
}

// UpdateTransaction merges the patch, re-runs amount normalization when amount
// or currency changed, and recomputes both the previously linked account and
// the new one when re-linked.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	existing, err := s.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	oldAccount := existing.AccountID

	merged := existing.Merge(patch)
	if patch.Date != nil {
		date, err := time.Parse(time.RFC3339, *patch.Date)
		if err != nil {
			date, err = time.Parse("2006-01-02", *patch.Date)
			if err != nil {
				return nil, financeErrors.NewValidationError("Invalid date format")
			}
		}
		merged.Date = date
	}
	if patch.Amount != nil || patch.Currency != nil {
		amount := merged.OriginalAmount
		if patch.Amount != nil {
			amount = *patch.Amount
		}
		currency := merged.OriginalCurrency
		if patch.Currency != nil {
			currency = *patch.Currency
		}
		converted, err := s.converter.ToUSD(ctx, amount, currency)
		if err != nil {
			return nil, financeErrors.NewDependencyError("currency conversion", err)
		}
		merged.OriginalAmount = amount
		merged.OriginalCurrency = currency
		merged.Amount = money.Round(converted)
	}
	if len(merged.Splits) > 0 {
		amounts := make([]float64, len(merged.Splits))
		for i, split := range merged.Splits {
			amounts[i] = split.Amount
		}
		merged.Amount = money.Sum(amounts...)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}

	if oldAccount != nil {
		if _, err := s.accounts.RecomputeBalance(ctx, *oldAccount); err != nil {
			s.logger.Error("balance recompute after update failed", "account_id", *oldAccount, "error", err)
		}
	}
	if merged.AccountID != nil && (oldAccount == nil || *merged.AccountID != *oldAccount) {
		if _, err := s.accounts.RecomputeBalance(ctx, *merged.AccountID); err != nil {
			s.logger.Error("balance recompute after update failed", "account_id", *merged.AccountID, "error", err)
		}
	}
	return &merged, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, transaction.ID); err != nil {
		return err
	}
	if transaction.AccountID != nil {
		if _, err := s.accounts.RecomputeBalance(ctx, *transaction.AccountID); err != nil {
			s.logger.Error("balance recompute after delete failed", "account_id", *transaction.AccountID, "error", err)
		}
	}
	return nil
}

// BulkUpdate applies a category and/or tags change to a set of owned
// transactions, or deletes them when action is "delete". Affected accounts are
// recomputed once each.
func (s *TransactionService) BulkUpdate(ctx context.Context, userID string, transactionIDs []string, category *string, tags []string, action string) error {
	transactions, err := s.repo.FindByIDs(ctx, userID, transactionIDs)
	if err != nil {
		return err
	}
	if len(transactions) != len(transactionIDs) {
		return financeErrors.ErrNotFound
	}

	accountIDs := map[string]bool{}
	for _, tx := range transactions {
		if tx.AccountID != nil {
			accountIDs[*tx.AccountID] = true
		}
	}

	if action == "delete" {
		if err := s.repo.DeleteByIDs(ctx, userID, transactionIDs); err != nil {
			return err
		}
	} else {
		if err := s.repo.UpdateCategoryAndTags(ctx, userID, transactionIDs, category, tags); err != nil {
			return err
		}
	}

	for accountID := range accountIDs {
		if _, err := s.accounts.RecomputeBalance(ctx, accountID); err != nil {
			s.logger.Error("balance recompute after bulk change failed", "account_id", accountID, "error", err)
		}
	}
	return nil
}

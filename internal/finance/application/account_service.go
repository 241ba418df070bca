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

// AccountService manages accounts and owns the ledger recompute: an account's
// balance is always rewritten from its full transaction set, never adjusted
// incrementally.
type AccountService struct {
	repo            domain.AccountRepository
	transactionRepo domain.TransactionRepository
	logger          *logging.Logger
}

func NewAccountService(repo domain.AccountRepository, transactionRepo domain.TransactionRepository, logger *logging.Logger) *AccountService {
	return &AccountService{
		repo:            repo,
		transactionRepo: transactionRepo,
		logger:          logger.WithComponent("accounts"),
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, account *domain.Account) error {
	account.ID = uuid.NewString()
	account.Balance = money.Round(account.Balance)
	if err := account.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, *account)
}

func (s *AccountService) GetUserAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	accounts, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *AccountService) getOwnedAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}
	return account, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID, accountID string, patch domain.AccountPatch) (*domain.Account, error) {
	account, err := s.getOwnedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	merged := account.Merge(patch)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// DeleteAccount removes an account. When linked transactions exist the delete
// is rejected with a conflict unless cascade is set, in which case the
// transactions go with it.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID string, cascade bool) error {
	account, err := s.getOwnedAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}

	count, err := s.transactionRepo.CountByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		if !cascade {
			return financeErrors.ErrConflict
		}
		if err := s.transactionRepo.DeleteByAccount(ctx, account.ID); err != nil {
			return err
		}
		s.logger.Info("deleted linked transactions with account", "account_id", account.ID, "count", count)
	}

	return s.repo.Delete(ctx, account.ID)
}

// GetAccountTransactions lists transactions linked to one account, optionally
// filtered by date range and category.
func (s *AccountService) GetAccountTransactions(ctx context.Context, userID, accountID, category string, start, end *time.Time) ([]domain.Transaction, error) {
	account, err := s.getOwnedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactionRepo.FindByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if category != "" && tx.Category != category {
			continue
		}
		if start != nil && tx.Date.Before(*start) {
			continue
		}
		if end != nil && tx.Date.After(*end) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered, nil
}

// RecomputeBalance derives the account balance from its transaction set and
// persists it. Income adds, expense and transfer subtract, investment-type
// transactions are pass-through. Idempotent: recomputing with unchanged data
// yields the same value.
func (s *AccountService) RecomputeBalance(ctx context.Context, accountID string) (float64, error) {
	transactions, err := s.transactionRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	balance := ComputeBalance(transactions)
	if err := s.repo.UpdateBalance(ctx, accountID, balance); err != nil {
		return 0, err
	}
	s.logger.Debug("recomputed account balance", "account_id", accountID, "balance", balance)
	return balance, nil
}

// ComputeBalance is the pure ledger aggregation over a transaction set.
func ComputeBalance(transactions []domain.Transaction) float64 {
	signed := make([]float64, 0, len(transactions))
	for _, tx := range transactions {
		switch tx.Type {
		case domain.TransactionTypeIncome:
			signed = append(signed, tx.Amount)
		case domain.TransactionTypeExpense, domain.TransactionTypeTransfer:
			signed = append(signed, -tx.Amount)
		}
	}
	return money.Sum(signed...)
}

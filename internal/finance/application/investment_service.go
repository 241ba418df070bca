package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/logging"
)

// InvestmentWithReturn is an investment annotated with its computed return.
type InvestmentWithReturn struct {
	domain.Investment
	ReturnPercentage float64 `json:"returnPercentage"`
}

type InvestmentService struct {
	repo   domain.InvestmentRepository
	logger *logging.Logger
}

func NewInvestmentService(repo domain.InvestmentRepository, logger *logging.Logger) *InvestmentService {
	return &InvestmentService{
		repo:   repo,
		logger: logger.WithComponent("investments"),
	}
}

func (s *InvestmentService) CreateInvestment(ctx context.Context, investment *domain.Investment) error {
	investment.ID = uuid.NewString()
	if err := investment.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, *investment)
}

func (s *InvestmentService) GetUserInvestments(ctx context.Context, userID string, limit, page int) ([]InvestmentWithReturn, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	investments, total, err := s.repo.FindByUser(ctx, userID, limit, page)
	if err != nil {
		return nil, 0, err
	}
	return withReturns(investments), total, nil
}

func (s *InvestmentService) GetInvestment(ctx context.Context, userID, investmentID string) (*InvestmentWithReturn, error) {
	investment, err := s.repo.FindByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if investment.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}
	annotated := InvestmentWithReturn{Investment: *investment, ReturnPercentage: investment.ReturnPercentage()}
	return &annotated, nil
}

func (s *InvestmentService) UpdateInvestment(ctx context.Context, userID, investmentID string, patch domain.InvestmentPatch) (*InvestmentWithReturn, error) {
	existing, err := s.repo.FindByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}

	merged := existing.Merge(patch)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	annotated := InvestmentWithReturn{Investment: merged, ReturnPercentage: merged.ReturnPercentage()}
	return &annotated, nil
}

func (s *InvestmentService) DeleteInvestment(ctx context.Context, userID, investmentID string) error {
	investment, err := s.repo.FindByID(ctx, investmentID)
	if err != nil {
		return err
	}
	if investment.UserID != userID {
		return financeErrors.ErrUnauthorized
	}
	return s.repo.Delete(ctx, investment.ID)
}

func withReturns(investments []domain.Investment) []InvestmentWithReturn {
	annotated := make([]InvestmentWithReturn, len(investments))
	for i, investment := range investments {
		annotated[i] = InvestmentWithReturn{Investment: investment, ReturnPercentage: investment.ReturnPercentage()}
	}
	return annotated
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/logging"
)

// GoalNotifier delivers goal events out of band. A nil notifier disables
// delivery; computing notifications for the API never depends on it.
type GoalNotifier interface {
	GoalCompleted(userID, title string)
	GoalDeadlineApproaching(userID, title string, daysLeft int)
}

// GoalNotification is a message derived ad hoc from the user's goal records.
type GoalNotification struct {
	Message string `json:"message"`
}

type GoalService struct {
	repo     domain.GoalRepository
	notifier GoalNotifier
	logger   *logging.Logger
	now      func() time.Time
}

func NewGoalService(repo domain.GoalRepository, notifier GoalNotifier, logger *logging.Logger) *GoalService {
	return &GoalService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.WithComponent("goals"),
		now:      time.Now,
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	goal.ID = uuid.NewString()
	goal.Status = domain.GoalStatusInProgress
	if err := goal.Validate(); err != nil {
		return err
	}
	goal.RefreshMilestones()
	return s.repo.Save(ctx, *goal)
}

func (s *GoalService) GetUserGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	goals, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		return []domain.Goal{}, nil
	}
	return goals, nil
}

func (s *GoalService) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	goal, err := s.repo.FindByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}
	return goal, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID string, patch domain.GoalPatch) (*domain.Goal, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	merged := goal.Merge(patch)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	merged.RefreshMilestones()
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, goal.ID)
}

// UpdateProgress sets the goal's current amount, recomputing milestone flags.
// Reaching the target completes the goal and emits a completion event.
func (s *GoalService) UpdateProgress(ctx context.Context, userID, goalID string, currentAmount float64) (*domain.Goal, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	goal.CurrentAmount = currentAmount
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	goal.RefreshMilestones()

	completedNow := goal.Status == domain.GoalStatusInProgress && goal.CurrentAmount >= goal.TargetAmount && goal.TargetAmount > 0
	if completedNow {
		goal.Status = domain.GoalStatusCompleted
	}
	if err := s.repo.Update(ctx, *goal); err != nil {
		return nil, err
	}
	if completedNow && s.notifier != nil {
		s.notifier.GoalCompleted(userID, goal.Title)
	}
	return goal, nil
}

// MarkComplete forces a goal into the completed state.
func (s *GoalService) MarkComplete(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	goal.Status = domain.GoalStatusCompleted
	if err := s.repo.Update(ctx, *goal); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.GoalCompleted(userID, goal.Title)
	}
	return goal, nil
}

// NotifyApproachingDeadlines emails owners of in-progress goals due within
// the next seven days. Invoked by the daily sweep; each goal gets its notice
// once, guarded by the persisted notified mark.
func (s *GoalService) NotifyApproachingDeadlines(ctx context.Context, now time.Time) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	goals, err := s.repo.FindApproachingDeadlines(ctx, now, now.AddDate(0, 0, 7))
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, goal := range goals {
		daysLeft := int(goal.Deadline.Sub(now).Hours()/24) + 1
		s.notifier.GoalDeadlineApproaching(goal.UserID, goal.Title, daysLeft)
		if err := s.repo.MarkDeadlineNotified(ctx, goal.ID, now); err != nil {
			s.logger.Error("failed to mark goal deadline notice", "goal_id", goal.ID, "error", err)
			continue
		}
		notified++
	}
	return notified, nil
}

// Notifications derives the user's current goal messages: approaching
// deadlines for in-progress goals and congratulations for completed ones.
func (s *GoalService) Notifications(ctx context.Context, userID string) ([]GoalNotification, error) {
	goals, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	notifications := []GoalNotification{}
	now := s.now()
	for _, goal := range goals {
		daysLeft := int(goal.Deadline.Sub(now).Hours()/24) + 1
		if goal.Status == domain.GoalStatusInProgress && daysLeft > 0 && daysLeft <= 7 {
			notifications = append(notifications, GoalNotification{
				Message: fmt.Sprintf("Goal %q is due in %d days.", goal.Title, daysLeft),
			})
		}
		if goal.Status == domain.GoalStatusCompleted {
			notifications = append(notifications, GoalNotification{
				Message: fmt.Sprintf("Congratulations! You've completed %q.", goal.Title),
			})
		}
	}
	return notifications, nil
}

package email

import (
	"context"

	"github.com/finvault/FinVault/internal/identity"
	"github.com/finvault/FinVault/internal/logging"
)

// UserDirectory resolves a user ID to a deliverable address.
type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*identity.User, error)
}

// GoalNotifier turns goal events into emails. Lookups and delivery are
// best-effort; a missing user is logged and dropped.
type GoalNotifier struct {
	service *Service
	users   UserDirectory
	logger  *logging.Logger
}

func NewGoalNotifier(service *Service, users UserDirectory, logger *logging.Logger) *GoalNotifier {
	return &GoalNotifier{service: service, users: users, logger: logger.WithComponent("goal_notifier")}
}

func (n *GoalNotifier) GoalCompleted(userID, title string) {
	user, err := n.users.FindByID(context.Background(), userID)
	if err != nil {
		n.logger.Error("cannot resolve goal notification recipient", "user_id", userID, "error", err)
		return
	}
	n.service.SendGoalCompleted(user.Email, user.Login, title)
}

func (n *GoalNotifier) GoalDeadlineApproaching(userID, title string, daysLeft int) {
	user, err := n.users.FindByID(context.Background(), userID)
	if err != nil {
		n.logger.Error("cannot resolve goal notification recipient", "user_id", userID, "error", err)
		return
	}
	n.service.SendGoalDeadline(user.Email, user.Login, title, daysLeft)
}

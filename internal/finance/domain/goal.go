package domain

import (
	"context"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

const (
	GoalStatusInProgress = "in-progress"
	GoalStatusCompleted  = "completed"
)

var validGoalCategories = map[string]bool{
	"savings":    true,
	"debt":       true,
	"investment": true,
	"other":      true,
}

// Milestone marks an intermediate amount on the way to a goal. Achieved is
// recomputed from CurrentAmount on every save, never set by the client.
type Milestone struct {
	Amount   float64 `json:"amount"`
	Achieved bool    `json:"achieved"`
}

// Goal is a savings target with an optional set of milestones.
// DeadlineNotifiedAt records that the approaching-deadline email went out, so
// the daily sweep warns about each goal once.
type Goal struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"-"`
	Title              string      `json:"title"`
	TargetAmount       float64     `json:"targetAmount"`
	CurrentAmount      float64     `json:"currentAmount"`
	Deadline           time.Time   `json:"deadline"`
	Status             string      `json:"status"`
	Category           string      `json:"category"`
	Milestones         []Milestone `json:"milestones"`
	DeadlineNotifiedAt *time.Time  `json:"-"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

func (g *Goal) Validate() error {
	if g.Title == "" {
		return errors.NewValidationError("Title is required")
	}
	if g.TargetAmount < 0 {
		return errors.NewValidationError("Target amount must not be negative")
	}
	if g.CurrentAmount < 0 {
		return errors.NewValidationError("Current amount must not be negative")
	}
	if g.CurrentAmount > g.TargetAmount {
		return errors.ErrGoalOverTarget
	}
	if g.Deadline.IsZero() {
		return errors.NewValidationError("Deadline is required")
	}
	if g.Status == "" {
		g.Status = GoalStatusInProgress
	}
	if g.Status != GoalStatusInProgress && g.Status != GoalStatusCompleted {
		return errors.NewValidationError("Status must be in-progress or completed")
	}
	if g.Category == "" {
		g.Category = "other"
	}
	if !validGoalCategories[g.Category] {
		return errors.NewValidationError("Category must be savings, debt, investment or other")
	}
	return nil
}

// RefreshMilestones recomputes every milestone's achieved flag from the
// current amount. Called on every save.
func (g *Goal) RefreshMilestones() {
	for i := range g.Milestones {
		g.Milestones[i].Achieved = g.CurrentAmount >= g.Milestones[i].Amount
	}
}

// Progress returns completion as a percentage capped at 100.
func (g *Goal) Progress() float64 {
	if g.TargetAmount == 0 {
		return 0
	}
	pct := g.CurrentAmount / g.TargetAmount * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// GoalPatch carries optional replacement values for an update.
type GoalPatch struct {
	Title         *string      `json:"title"`
	TargetAmount  *float64     `json:"targetAmount"`
	CurrentAmount *float64     `json:"currentAmount"`
	Deadline      *time.Time   `json:"deadline"`
	Status        *string      `json:"status"`
	Category      *string      `json:"category"`
	Milestones    *[]Milestone `json:"milestones"`
}

// Merge applies the patch onto the existing goal.
func (g Goal) Merge(p GoalPatch) Goal {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.Deadline != nil {
		g.Deadline = *p.Deadline
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Milestones != nil {
		g.Milestones = *p.Milestones
	}
	return g
}

type GoalRepository interface {
	Save(ctx context.Context, goal Goal) error
	FindByUser(ctx context.Context, userID string) ([]Goal, error)
	FindByUserAndStatus(ctx context.Context, userID, status string, limit int) ([]Goal, error)
	// FindApproachingDeadlines returns in-progress goals of every user whose
	// deadline falls inside [from, to] and that have not been notified yet.
	FindApproachingDeadlines(ctx context.Context, from, to time.Time) ([]Goal, error)
	FindByID(ctx context.Context, goalID string) (*Goal, error)
	Update(ctx context.Context, goal Goal) error
	MarkDeadlineNotified(ctx context.Context, goalID string, at time.Time) error
	Delete(ctx context.Context, goalID string) error
}

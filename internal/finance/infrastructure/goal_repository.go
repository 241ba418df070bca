package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

const goalColumns = `id, user_id, title, target_amount, current_amount, deadline, status, category, milestones, deadline_notified_at, created_at, updated_at`

type GoalRepository struct {
	db *sql.DB
}

func NewGoalRepository(db *sql.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Save(ctx context.Context, goal domain.Goal) error {
	milestones, err := json.Marshal(orEmptyMilestones(goal.Milestones))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, target_amount, current_amount, deadline, status, category, milestones)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		goal.ID, goal.UserID, goal.Title, goal.TargetAmount, goal.CurrentAmount,
		goal.Deadline, goal.Status, goal.Category, milestones,
	)
	return err
}

func (r *GoalRepository) FindByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY deadline`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGoals(rows)
}

func (r *GoalRepository) FindByUserAndStatus(ctx context.Context, userID, status string, limit int) ([]domain.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 AND status = $2 ORDER BY deadline LIMIT $3`,
		userID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGoals(rows)
}

// FindApproachingDeadlines lists in-progress goals across all users that are
// due inside the window and have not had their deadline notice sent.
func (r *GoalRepository) FindApproachingDeadlines(ctx context.Context, from, to time.Time) ([]domain.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
         WHERE status = $1 AND deadline >= $2 AND deadline <= $3 AND deadline_notified_at IS NULL
         ORDER BY deadline`,
		domain.GoalStatusInProgress, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGoals(rows)
}

func (r *GoalRepository) FindByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	goal, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1`, goalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *GoalRepository) Update(ctx context.Context, goal domain.Goal) error {
	milestones, err := json.Marshal(orEmptyMilestones(goal.Milestones))
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET title = $1, target_amount = $2, current_amount = $3, deadline = $4,
            status = $5, category = $6, milestones = $7, updated_at = now()
         WHERE id = $8`,
		goal.Title, goal.TargetAmount, goal.CurrentAmount, goal.Deadline,
		goal.Status, goal.Category, milestones, goal.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *GoalRepository) MarkDeadlineNotified(ctx context.Context, goalID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET deadline_notified_at = $1, updated_at = now() WHERE id = $2`, at, goalID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *GoalRepository) Delete(ctx context.Context, goalID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, goalID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var milestones []byte
	err := row.Scan(&goal.ID, &goal.UserID, &goal.Title, &goal.TargetAmount, &goal.CurrentAmount,
		&goal.Deadline, &goal.Status, &goal.Category, &milestones, &goal.DeadlineNotifiedAt,
		&goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(milestones, &goal.Milestones); err != nil {
		return nil, err
	}
	return &goal, nil
}

func scanGoals(rows *sql.Rows) ([]domain.Goal, error) {
	var goals []domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	return goals, rows.Err()
}

func orEmptyMilestones(m []domain.Milestone) []domain.Milestone {
	if m == nil {
		return []domain.Milestone{}
	}
	return m
}

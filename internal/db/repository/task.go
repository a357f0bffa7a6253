package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.TaskRepository = (*TaskRepo)(nil)

const selectTask = `SELECT id, title, description, priority, deadline, status,
	assigner_id, assignee_id, created_at, updated_at FROM tasks`

// TaskRepo stores tasks. Mutations run inside a write transaction that
// re-reads the row, so guards always see the committed state.
type TaskRepo struct {
	db *sqlx.DB
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusPending
	}
	now := nowUTC()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Deadline = t.Deadline.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tasks (id, title, description, priority, deadline, status,
			assigner_id, assignee_id, created_at, updated_at)
		VALUES (:id, :title, :description, :priority, :deadline, :status,
			:assigner_id, :assignee_id, :created_at, :updated_at)
	`, t)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, t.ID)
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return getTask(ctx, r.db, id)
}

// ListForUser returns tasks where userID is the assigner or the assignee,
// most recently updated first.
func (r *TaskRepo) ListForUser(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	q := selectTask
	var args []interface{}
	switch filter.Relation {
	case "assigned":
		q += ` WHERE assigner_id = ?`
		args = append(args, userID)
	case "assignee":
		q += ` WHERE assignee_id = ?`
		args = append(args, userID)
	default:
		q += ` WHERE (assigner_id = ? OR assignee_id = ?)`
		args = append(args, userID, userID)
	}
	if filter.Status != "" {
		q += ` AND status = ?`
		args = append(args, filter.Status)
	}
	q += ` ORDER BY updated_at DESC, id DESC`

	var tasks []domain.Task
	if err := r.db.SelectContext(ctx, &tasks, q, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TransitionStatus sets the status after guard accepts the current row.
func (r *TaskRepo) TransitionStatus(ctx context.Context, id string, to domain.TaskStatus, guard domain.TaskGuard) (*domain.Task, error) {
	var out *domain.Task
	err := r.inTx(ctx, id, guard, func(tx *sqlx.Tx, cur *domain.Task) error {
		cur.Status = to
		cur.UpdatedAt = nowUTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
			cur.Status, cur.UpdatedAt, id); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the mutation to a copy of the current row and writes every
// mutable column. It returns the row as it was before and after.
func (r *TaskRepo) Update(ctx context.Context, id string, guard domain.TaskGuard, apply func(t *domain.Task)) (*domain.Task, *domain.Task, error) {
	var before, after *domain.Task
	err := r.inTx(ctx, id, guard, func(tx *sqlx.Tx, cur *domain.Task) error {
		prev := *cur
		apply(cur)
		cur.ID = id
		cur.Deadline = cur.Deadline.UTC()
		cur.UpdatedAt = nowUTC()
		if _, err := tx.NamedExecContext(ctx, `
			UPDATE tasks SET title = :title, description = :description, priority = :priority,
				deadline = :deadline, assignee_id = :assignee_id, updated_at = :updated_at
			WHERE id = :id
		`, cur); err != nil {
			return mapDBError(err)
		}
		before, after = &prev, cur
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Delete removes the task after guard accepts it and returns the deleted row.
func (r *TaskRepo) Delete(ctx context.Context, id string, guard domain.TaskGuard) (*domain.Task, error) {
	var out *domain.Task
	err := r.inTx(ctx, id, guard, func(tx *sqlx.Tx, cur *domain.Task) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TaskRepo) inTx(ctx context.Context, id string, guard domain.TaskGuard, fn func(tx *sqlx.Tx, cur *domain.Task) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := getTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(cur); err != nil {
			return err
		}
	}
	if err := fn(tx, cur); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func getTask(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Task, error) {
	var t domain.Task
	if err := sqlx.GetContext(ctx, q, &t, selectTask+` WHERE id = ?`, id); err != nil {
		return nil, notFoundAs(err, "task %q not found", id)
	}
	return &t, nil
}

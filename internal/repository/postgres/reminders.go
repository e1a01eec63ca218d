package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/repository"
)

const reminderColumns = `id, user_id, title, description, reminder_date, reminder_time, priority,
	lead_id, completed, completed_at, repeat_interval, created_at, updated_at`

type ReminderStore struct {
	pool *pgxpool.Pool
}

func NewReminderStore(pool *pgxpool.Pool) *ReminderStore {
	return &ReminderStore{pool: pool}
}

func (s *ReminderStore) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Reminder, error) {
	query, args, err := buildSelect(reminderColumns, "reminders", ownerID, q, repository.ReminderFields)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]models.Reminder, 0)
	for rows.Next() {
		var r models.Reminder
		var priority, repeat string
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.Title,
			&r.Description,
			&r.ReminderDate,
			&r.ReminderTime,
			&priority,
			&r.LeadID,
			&r.Completed,
			&r.CompletedAt,
			&repeat,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.Priority = models.Priority(priority)
		r.RepeatInterval = models.RepeatInterval(repeat)
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}

	return reminders, nil
}

func (s *ReminderStore) Create(ctx context.Context, ownerID uuid.UUID, f models.ReminderFields) (string, error) {
	id, err := repository.NewID()
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}

	query := `
		INSERT INTO reminders (id, user_id, title, description, reminder_date, reminder_time,
			priority, lead_id, repeat_interval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`

	_, err = s.pool.Exec(ctx, query,
		id,
		ownerID,
		f.Title,
		f.Description,
		f.ReminderDate,
		f.ReminderTime,
		string(f.Priority),
		f.LeadID,
		string(f.RepeatInterval),
	)
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

// Update applies the patch in a single statement, so completion and any
// field edits land together. COALESCE keeps the first completed_at.
func (s *ReminderStore) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.ReminderPatch) error {
	var query string
	var args []any

	if f := p.Fields; f != nil {
		query = `
			UPDATE reminders
			SET title = $3, description = $4, reminder_date = $5, reminder_time = $6,
				priority = $7, lead_id = $8, repeat_interval = $9,
				completed = completed OR $10,
				completed_at = CASE WHEN $10 THEN COALESCE(completed_at, now()) ELSE completed_at END,
				updated_at = now()
			WHERE id = $1 AND user_id = $2`
		args = []any{id, ownerID, f.Title, f.Description, f.ReminderDate, f.ReminderTime,
			string(f.Priority), f.LeadID, string(f.RepeatInterval), p.Complete}
	} else {
		query = `
			UPDATE reminders
			SET completed = completed OR $3,
				completed_at = CASE WHEN $3 THEN COALESCE(completed_at, now()) ELSE completed_at END,
				updated_at = now()
			WHERE id = $1 AND user_id = $2`
		args = []any{id, ownerID, p.Complete}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update reminder %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *ReminderStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete reminder %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

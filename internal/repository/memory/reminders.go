package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/repository"
)

type ReminderStore struct {
	mu    sync.RWMutex
	clock Clock
	rows  map[string]models.Reminder
}

func NewReminderStore(clock Clock) *ReminderStore {
	return &ReminderStore{clock: clock, rows: make(map[string]models.Reminder)}
}

func (s *ReminderStore) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.CheckQuery(q, repository.ReminderFields); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	s.mu.RLock()
	owned := make([]models.Reminder, 0, len(s.rows))
	for _, r := range s.rows {
		if r.UserID == ownerID {
			owned = append(owned, cloneReminder(r))
		}
	}
	s.mu.RUnlock()

	return run(owned, q, repository.ReminderValue, models.Reminder.RecordID), nil
}

func (s *ReminderStore) Create(ctx context.Context, ownerID uuid.UUID, f models.ReminderFields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := repository.NewID()
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = models.Reminder{
		ID:             id,
		UserID:         ownerID,
		Title:          f.Title,
		Description:    f.Description,
		ReminderDate:   f.ReminderDate,
		ReminderTime:   f.ReminderTime,
		Priority:       f.Priority,
		LeadID:         cloneStringPtr(f.LeadID),
		RepeatInterval: f.RepeatInterval,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return id, nil
}

func (s *ReminderStore) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.ReminderPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.UserID != ownerID {
		return fmt.Errorf("update reminder %s: %w", id, repository.ErrNotFound)
	}
	if f := p.Fields; f != nil {
		r.Title = f.Title
		r.Description = f.Description
		r.ReminderDate = f.ReminderDate
		r.ReminderTime = f.ReminderTime
		r.Priority = f.Priority
		r.LeadID = cloneStringPtr(f.LeadID)
		r.RepeatInterval = f.RepeatInterval
	}
	if p.Complete {
		r.Completed = true
		if r.CompletedAt == nil {
			r.CompletedAt = ptr(now)
		}
	}
	r.UpdatedAt = now
	s.rows[id] = r
	return nil
}

func (s *ReminderStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.UserID != ownerID {
		return fmt.Errorf("delete reminder %s: %w", id, repository.ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

func cloneReminder(r models.Reminder) models.Reminder {
	r.LeadID = cloneStringPtr(r.LeadID)
	r.CompletedAt = cloneTimePtr(r.CompletedAt)
	return r
}

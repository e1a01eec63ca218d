package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/repository"
)

type LeadStore struct {
	mu    sync.RWMutex
	clock Clock
	rows  map[string]models.Lead
}

func NewLeadStore(clock Clock) *LeadStore {
	return &LeadStore{clock: clock, rows: make(map[string]models.Lead)}
}

func (s *LeadStore) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.CheckQuery(q, repository.LeadFields); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	s.mu.RLock()
	owned := make([]models.Lead, 0, len(s.rows))
	for _, l := range s.rows {
		if l.UserID == ownerID {
			owned = append(owned, cloneLead(l))
		}
	}
	s.mu.RUnlock()

	return run(owned, q, repository.LeadValue, models.Lead.RecordID), nil
}

func (s *LeadStore) Create(ctx context.Context, ownerID uuid.UUID, f models.LeadFields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := repository.NewID()
	if err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = models.Lead{
		ID:        id,
		UserID:    ownerID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Company:   f.Company,
		Status:    f.Status,
		Source:    f.Source,
		Notes:     f.Notes,
		Tags:      slices.Clone(f.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *LeadStore) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.LeadPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok || l.UserID != ownerID {
		return fmt.Errorf("update lead %s: %w", id, repository.ErrNotFound)
	}
	if f := p.Fields; f != nil {
		l.Name = f.Name
		l.Email = f.Email
		l.Phone = f.Phone
		l.Company = f.Company
		l.Status = f.Status
		l.Source = f.Source
		l.Notes = f.Notes
		l.Tags = slices.Clone(f.Tags)
	}
	if p.TouchContact {
		l.LastContacted = ptr(now)
	}
	l.UpdatedAt = now
	s.rows[id] = l
	return nil
}

func (s *LeadStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok || l.UserID != ownerID {
		return fmt.Errorf("delete lead %s: %w", id, repository.ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

func cloneLead(l models.Lead) models.Lead {
	l.Tags = slices.Clone(l.Tags)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	l.LastContacted = cloneTimePtr(l.LastContacted)
	return l
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/repository"
)

const leadColumns = `id, user_id, name, email, phone, company, status, source, notes, tags,
	created_at, updated_at, last_contacted`

type LeadStore struct {
	pool *pgxpool.Pool
}

func NewLeadStore(pool *pgxpool.Pool) *LeadStore {
	return &LeadStore{pool: pool}
}

func (s *LeadStore) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Lead, error) {
	query, args, err := buildSelect(leadColumns, "leads", ownerID, q, repository.LeadFields)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]models.Lead, 0)
	for rows.Next() {
		var l models.Lead
		var status string
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.Name,
			&l.Email,
			&l.Phone,
			&l.Company,
			&status,
			&l.Source,
			&l.Notes,
			&l.Tags,
			&l.CreatedAt,
			&l.UpdatedAt,
			&l.LastContacted,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Status = models.LeadStatus(status)
		if l.Tags == nil {
			l.Tags = []string{}
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

// Create inserts a lead. The id is generated here; both timestamps come from
// the database clock.
func (s *LeadStore) Create(ctx context.Context, ownerID uuid.UUID, f models.LeadFields) (string, error) {
	id, err := repository.NewID()
	if err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}

	query := `
		INSERT INTO leads (id, user_id, name, email, phone, company, status, source, notes, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`

	_, err = s.pool.Exec(ctx, query,
		id,
		ownerID,
		f.Name,
		f.Email,
		f.Phone,
		f.Company,
		string(f.Status),
		f.Source,
		f.Notes,
		tagsOrEmpty(f.Tags),
	)
	if err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

// Update writes the patch in one statement. last_contacted only moves when
// the patch asks for it.
func (s *LeadStore) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.LeadPatch) error {
	var query string
	var args []any

	if f := p.Fields; f != nil {
		query = `
			UPDATE leads
			SET name = $3, email = $4, phone = $5, company = $6, status = $7,
				source = $8, notes = $9, tags = $10,
				last_contacted = CASE WHEN $11 THEN now() ELSE last_contacted END,
				updated_at = now()
			WHERE id = $1 AND user_id = $2`
		args = []any{id, ownerID, f.Name, f.Email, f.Phone, f.Company, string(f.Status),
			f.Source, f.Notes, tagsOrEmpty(f.Tags), p.TouchContact}
	} else {
		query = `
			UPDATE leads
			SET last_contacted = CASE WHEN $3 THEN now() ELSE last_contacted END,
				updated_at = now()
			WHERE id = $1 AND user_id = $2`
		args = []any{id, ownerID, p.TouchContact}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update lead %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *LeadStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete lead %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// tagsOrEmpty keeps the column NOT NULL: pgx encodes a nil slice as NULL.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

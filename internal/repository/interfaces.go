package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/models"
)

// Every method takes ctx first and ownerID second.
//
// ownerID is the authenticated user's id. Stores filter every read and
// every write on it, so a guessed record id from another account matches
// nothing and surfaces as ErrNotFound.

// ErrNotFound is returned by Update and Delete when no row with that id
// belongs to the owner.
var ErrNotFound = errors.New("record not found")

// Collection names, shared by stores, replicas and metrics labels.
const (
	CollectionLeads     = "leads"
	CollectionReminders = "reminders"
)

// LeadRepository is the "leads" collection of the document store.
type LeadRepository interface {
	// List runs q against the owner's leads. Returns an empty slice, not nil.
	List(ctx context.Context, ownerID uuid.UUID, q Query) ([]models.Lead, error)

	// Create stores a new lead and returns its store-assigned id.
	// CreatedAt and UpdatedAt come from the store clock.
	Create(ctx context.Context, ownerID uuid.UUID, f models.LeadFields) (string, error)

	// Update applies p and refreshes UpdatedAt.
	Update(ctx context.Context, ownerID uuid.UUID, id string, p models.LeadPatch) error

	// Delete removes the lead permanently.
	Delete(ctx context.Context, ownerID uuid.UUID, id string) error
}

// ReminderRepository is the "reminders" collection of the document store.
type ReminderRepository interface {
	List(ctx context.Context, ownerID uuid.UUID, q Query) ([]models.Reminder, error)
	Create(ctx context.Context, ownerID uuid.UUID, f models.ReminderFields) (string, error)

	// Update applies p. With p.Complete the store sets completed and keeps
	// an existing completed_at, in the same write as the other fields.
	Update(ctx context.Context, ownerID uuid.UUID, id string, p models.ReminderPatch) error

	Delete(ctx context.Context, ownerID uuid.UUID, id string) error
}

// UserRepository backs the auth provider.
type UserRepository interface {
	// Create inserts a user. Returns ErrEmailTaken if the email exists.
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)

	// GetByEmail returns nil, nil when no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ErrEmailTaken is returned by UserRepository.Create on a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

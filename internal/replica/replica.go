// Package replica holds the most recent query result of one collection for
// one user, keyed by record id and in query order.
//
// A Replica is replaced wholesale on every successful Load and never
// patched in place. Loads are numbered as they are issued; a response for
// anything but the newest issued load is dropped, so the contents always
// come from the last load issued, whatever order the store answers in.
package replica

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/observ"
	"github.com/lalith-99/echocrm/internal/repository"
	"go.uber.org/zap"
)

// ErrSuperseded is returned by Load when a later Load (or Reset) was issued
// while this one was in flight. The replica is left as the later call set it.
var ErrSuperseded = errors.New("replica load superseded")

// Record is anything with a stable store id.
type Record interface {
	RecordID() string
}

// Loader runs one owner-scoped query. A repository's List method fits as is:
//
//	replica.New[models.Lead]("leads", leadRepo.List, logger)
type Loader[T Record] func(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]T, error)

// Provenance describes the load the current contents came from.
type Provenance struct {
	UserID     uuid.UUID
	Query      repository.Query
	Generation uint64
	LoadedAt   time.Time
}

type Replica[T Record] struct {
	name   string
	loader Loader[T]
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	issued uint64
	byID   map[string]T
	order  []T
	prov   Provenance
	loaded bool
}

// New returns an empty replica for the named collection.
func New[T Record](name string, loader Loader[T], logger *zap.Logger) *Replica[T] {
	return &Replica[T]{
		name:   name,
		loader: loader,
		logger: logger.With(zap.String("collection", name)),
		now:    time.Now,
		byID:   make(map[string]T),
		order:  make([]T, 0),
	}
}

// Name is the collection name the replica was created with.
func (r *Replica[T]) Name() string { return r.name }

// Load fetches q for ownerID and, on success, replaces the replica's
// contents with the result. On failure the previous contents stay and the
// error comes back as an apperr store error.
func (r *Replica[T]) Load(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]T, error) {
	r.mu.Lock()
	r.issued++
	gen := r.issued
	r.mu.Unlock()

	rows, err := r.loader(ctx, ownerID, q)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.issued {
		observ.RecordReplicaLoad(r.name, "superseded")
		r.logger.Debug("dropping superseded load",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", r.issued),
		)
		return nil, ErrSuperseded
	}

	if err != nil {
		observ.RecordReplicaLoad(r.name, "error")
		r.logger.Warn("replica load failed, keeping previous contents",
			zap.Uint64("generation", gen),
			zap.Error(err),
		)
		return nil, apperr.Store("Failed to load "+r.name, err)
	}

	byID := make(map[string]T, len(rows))
	order := make([]T, 0, len(rows))
	for _, row := range rows {
		byID[row.RecordID()] = row
		order = append(order, row)
	}
	r.byID = byID
	r.order = order
	r.prov = Provenance{UserID: ownerID, Query: q, Generation: gen, LoadedAt: r.now()}
	r.loaded = true

	observ.RecordReplicaLoad(r.name, "ok")
	r.logger.Debug("replica loaded",
		zap.Uint64("generation", gen),
		zap.Int("records", len(order)),
		zap.Stringer("query", q),
	)
	return slices.Clone(order), nil
}

// Snapshot returns the records in query order. The slice is a copy.
func (r *Replica[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Get looks a record up by id.
func (r *Replica[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return rec, ok
}

func (r *Replica[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Provenance reports where the contents came from. ok is false until the
// first successful load, and again after Reset.
func (r *Replica[T]) Provenance() (Provenance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prov, r.loaded
}

// Reset empties the replica and invalidates any load still in flight.
func (r *Replica[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	r.byID = make(map[string]T)
	r.order = make([]T, 0)
	r.prov = Provenance{}
	r.loaded = false
}

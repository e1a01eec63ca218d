package replica

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type item struct {
	ID  string
	Tag string
}

func (i item) RecordID() string { return i.ID }

func staticLoader(rows []item, err error) Loader[item] {
	return func(context.Context, uuid.UUID, repository.Query) ([]item, error) {
		return rows, err
	}
}

func TestLoad_ReplacesContentsAndRecordsProvenance(t *testing.T) {
	owner := uuid.New()
	q := repository.Query{}.OrderBy("created_at", true)
	r := New("items", staticLoader([]item{{ID: "b"}, {ID: "a"}}, nil), zap.NewNop())

	_, ok := r.Provenance()
	assert.False(t, ok)

	got, err := r.Load(context.Background(), owner, q)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "b"}, {ID: "a"}}, got)
	assert.Equal(t, 2, r.Len())

	rec, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", rec.ID)

	prov, ok := r.Provenance()
	require.True(t, ok)
	assert.Equal(t, owner, prov.UserID)
	assert.Equal(t, q, prov.Query)
	assert.Equal(t, uint64(1), prov.Generation)
}

func TestLoad_FailureKeepsPreviousContents(t *testing.T) {
	rows := []item{{ID: "a"}}
	var fail error
	r := New("items", func(context.Context, uuid.UUID, repository.Query) ([]item, error) {
		return rows, fail
	}, zap.NewNop())

	_, err := r.Load(context.Background(), uuid.New(), repository.Query{})
	require.NoError(t, err)

	fail = errors.New("connection reset")
	_, err = r.Load(context.Background(), uuid.New(), repository.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.ErrorContains(t, err, "connection reset")

	assert.Equal(t, []item{{ID: "a"}}, r.Snapshot())
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := New("items", staticLoader([]item{{ID: "a", Tag: "x"}}, nil), zap.NewNop())
	_, err := r.Load(context.Background(), uuid.New(), repository.Query{})
	require.NoError(t, err)

	snap := r.Snapshot()
	snap[0].Tag = "mutated"
	assert.Equal(t, "x", r.Snapshot()[0].Tag)
}

// The first load answers after the second. The replica must end up with the
// second load's rows and the first caller must learn it was superseded.
func TestLoad_OutOfOrderResponses(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	var calls int
	var mu sync.Mutex
	loader := func(ctx context.Context, _ uuid.UUID, _ repository.Query) ([]item, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return []item{{ID: "stale"}}, nil
		}
		return []item{{ID: "fresh"}}, nil
	}
	r := New("items", loader, zap.NewNop())

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.Load(context.Background(), uuid.New(), repository.Query{})
	}()

	<-firstStarted
	got, err := r.Load(context.Background(), uuid.New(), repository.Query{})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "fresh"}}, got)

	close(releaseFirst)
	wg.Wait()

	assert.ErrorIs(t, firstErr, ErrSuperseded)
	assert.Equal(t, []item{{ID: "fresh"}}, r.Snapshot())
	prov, _ := r.Provenance()
	assert.Equal(t, uint64(2), prov.Generation)
}

func TestReset_DropsInFlightLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := New("items", func(context.Context, uuid.UUID, repository.Query) ([]item, error) {
		close(started)
		<-release
		return []item{{ID: "a"}}, nil
	}, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := r.Load(context.Background(), uuid.New(), repository.Query{})
		done <- err
	}()

	<-started
	r.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 0, r.Len())
	_, ok := r.Provenance()
	assert.False(t, ok)
}

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/longform/internal/domain"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]domain.SearchQuery
	err     error
}

func (f *fakeWriter) InsertSearchQueries(_ context.Context, qs []domain.SearchQuery) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]domain.SearchQuery(nil), qs...))
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(qs)), nil
}

func (f *fakeWriter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestIngestor_FlushesOnBatchSize(t *testing.T) {
	w := &fakeWriter{}
	ig := NewIngestor(w, 10, 2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ig.Start(ctx)

	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "a"}))
	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "b"}))

	require.Eventually(t, func() bool { return w.total() == 2 }, time.Second, 5*time.Millisecond)
}

func TestIngestor_FlushesOnTimer(t *testing.T) {
	w := &fakeWriter{}
	ig := NewIngestor(w, 10, 100, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ig.Start(ctx)

	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "a"}))
	require.Eventually(t, func() bool { return w.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIngestor_FinalFlushOnCancel(t *testing.T) {
	w := &fakeWriter{}
	ig := NewIngestor(w, 10, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Queue before the loop starts so nothing is consumed early.
	for _, q := range []string{"a", "b", "c"} {
		require.True(t, ig.Enqueue(domain.SearchQuery{Query: q}))
	}
	ig.Start(ctx)
	cancel()
	ig.Wait()

	require.Equal(t, 3, w.total())
}

func TestIngestor_EnqueueDropsWhenFull(t *testing.T) {
	ig := NewIngestor(&fakeWriter{}, 1, 10, time.Hour)
	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "a"}))
	require.False(t, ig.Enqueue(domain.SearchQuery{Query: "b"}))
}

func TestIngestor_WriterErrorDoesNotStopLoop(t *testing.T) {
	w := &fakeWriter{err: errors.New("db down")}
	ig := NewIngestor(w, 10, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	ig.Start(ctx)

	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "a"}))
	require.True(t, ig.Enqueue(domain.SearchQuery{Query: "b"}))
	require.Eventually(t, func() bool { return w.total() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	ig.Wait()
}

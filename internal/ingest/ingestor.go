// Package ingest batches search queries and writes them behind the request
// path. Search responses never wait on the repository.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/metrics"
)

// SearchWriter is the slice of the repository the batcher needs.
type SearchWriter interface {
	InsertSearchQueries(ctx context.Context, queries []domain.SearchQuery) (int64, error)
}

type Ingestor struct {
	queue        chan domain.SearchQuery
	writer       SearchWriter
	batchMaxSize int
	batchMaxWait time.Duration
	flushTimeout time.Duration
	done         chan struct{}
	log          zerolog.Logger
}

func NewIngestor(writer SearchWriter, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration) *Ingestor {
	if batchMaxSize <= 0 {
		batchMaxSize = 1
	}
	if batchMaxWait <= 0 {
		batchMaxWait = 500 * time.Millisecond
	}
	return &Ingestor{
		queue:        make(chan domain.SearchQuery, queueMaxSize),
		writer:       writer,
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		flushTimeout: 5 * time.Second,
		done:         make(chan struct{}),
		log:          logging.Component("ingest"),
	}
}

// Start runs the batch loop until ctx is cancelled. Whatever is queued at that
// point is flushed once more before Wait returns.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		defer close(ig.done)

		batch := make([]domain.SearchQuery, 0, ig.batchMaxSize)
		t := time.NewTimer(ig.batchMaxWait)
		defer t.Stop()

		resetTimer := func() {
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(ig.batchMaxWait)
		}

		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				resetTimer()
				return
			}
			affected, err := ig.writer.InsertSearchQueries(ctx, batch)
			if err != nil {
				metrics.SearchLogFlushed.WithLabelValues("error").Add(float64(len(batch)))
				ig.log.Error().Err(err).Int("dropped", len(batch)).Msg("search log insert failed")
			} else {
				metrics.SearchLogFlushed.WithLabelValues("ok").Add(float64(affected))
				ig.log.Debug().Int64("inserted", affected).Int("size", len(batch)).Msg("search log insert ok")
			}
			batch = batch[:0]
			resetTimer()
		}

		for {
			select {
			case <-ctx.Done():
				ig.drain(&batch)
				fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ig.flushTimeout)
				flush(fctx)
				cancel()
				return
			case q := <-ig.queue:
				batch = append(batch, q)
				if len(batch) >= ig.batchMaxSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

func (ig *Ingestor) drain(batch *[]domain.SearchQuery) {
	for {
		select {
		case q := <-ig.queue:
			*batch = append(*batch, q)
		default:
			return
		}
	}
}

// Enqueue never blocks; it reports false when the queue is full.
func (ig *Ingestor) Enqueue(q domain.SearchQuery) bool {
	select {
	case ig.queue <- q:
		return true
	default:
		metrics.SearchLogDropped.Inc()
		return false
	}
}

// Wait blocks until the loop started by Start has exited.
func (ig *Ingestor) Wait() {
	<-ig.done
}

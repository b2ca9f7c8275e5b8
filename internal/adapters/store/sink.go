package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

var (
	ErrSinkFull   = errors.New("message queue full")
	ErrSinkClosed = errors.New("message sink closed")
)

const writeTimeout = 5 * time.Second

// AsyncSink decouples the send path from the database: Record only enqueues,
// a fixed set of workers drain the queue. When the queue is full the
// message is dropped and reported, never blocking the caller.
type AsyncSink struct {
	next  core.MessageSink
	queue chan core.MessageRecord
	pool  *pool.Pool

	mu     sync.RWMutex
	closed bool
}

var _ core.MessageSink = (*AsyncSink)(nil)

func NewAsyncSink(next core.MessageSink, workers, queue int) *AsyncSink {
	workers = max(workers, 1)
	queue = max(queue, 1)
	s := &AsyncSink{
		next:  next,
		queue: make(chan core.MessageRecord, queue),
		pool:  pool.New().WithMaxGoroutines(workers),
	}
	for i := 0; i < workers; i++ {
		s.pool.Go(s.drain)
	}
	return s
}

func (s *AsyncSink) Record(_ context.Context, rec core.MessageRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.NewDependencyError("record message", ErrSinkClosed)
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		log.Warn().Str("module", "store.sink").Str("room", string(rec.Room)).Msg("queue full, message not persisted")
		return domain.NewDependencyError("record message", ErrSinkFull)
	}
}

func (s *AsyncSink) drain() {
	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.next.Record(ctx, rec); err != nil {
			log.Error().Err(err).Str("module", "store.sink").Str("room", string(rec.Room)).Msg("persist message")
		}
		cancel()
	}
}

// Close stops accepting records and waits until the queue is flushed.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.pool.Wait()
	log.Info().Str("module", "store.sink").Msg("message sink flushed")
}

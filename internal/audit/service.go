package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"learning-portal/internal/auth"
	"learning-portal/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is append-only:
// there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Service records security events for internal review.
//
// IMPORTANT:
// - Audit is internal-only. Only admin routes may read it.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
	// writeTimeout bounds each background append started by RecordResolution.
	writeTimeout time.Duration

	// RecordResolution hands events to a fixed pool of writers through a bounded
	// queue. When the queue is full the event is dropped and counted.
	queue   chan pendingEvent
	workers int
	start   sync.Once
	stop    sync.Once
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
}

type pendingEvent struct {
	event Event
	log   *slog.Logger
}

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
)

type Option func(*Service)

// WithQueue sizes the background write queue and its worker pool.
func WithQueue(size, workers int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queue = make(chan pendingEvent, size)
		}
		if workers > 0 {
			s.workers = workers
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		clock:        time.Now,
		writeTimeout: 2 * time.Second,
		queue:        make(chan pendingEvent, defaultQueueSize),
		workers:      defaultWorkers,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops the writers after flushing what is already queued.
func (s *Service) Close() {
	s.stop.Do(func() { close(s.done) })
	s.wg.Wait()
}

// Dropped reports how many resolution events were discarded because the queue was full.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.Subject == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.Recent(ctx, limit)
}

var _ auth.Recorder = (*Service)(nil)

// RecordResolution implements auth.Recorder. It never blocks: the event is queued for a
// background writer and outlives the request context, or dropped if the queue is full.
func (s *Service) RecordResolution(ctx context.Context, ev auth.ResolutionEvent) {
	e := Event{
		Type:      EventTypeVerificationDegraded,
		Mode:      string(ev.Mode),
		Subject:   ev.Subject,
		Reason:    string(ev.Outcome),
		IPAddress: ClientIPFromContext(ctx),
		RequestID: logger.RequestID(ctx),
	}
	if ev.Outcome == auth.OutcomeRejected {
		e.Type = EventTypeCredentialRejected
	}

	s.start.Do(s.startWorkers)

	log := logger.From(ctx)
	select {
	case s.queue <- pendingEvent{event: e, log: log}:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn("audit queue full, event dropped", "type", e.Type, "dropped_total", n)
		}
	}
}

func (s *Service) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.drain()
	}
}

func (s *Service) drain() {
	defer s.wg.Done()
	for {
		select {
		case p := <-s.queue:
			s.write(p)
		case <-s.done:
			for {
				select {
				case p := <-s.queue:
					s.write(p)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(p pendingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.Append(ctx, p.event); err != nil {
		p.log.Warn("audit append failed", "type", p.event.Type, "err", err)
	}
}

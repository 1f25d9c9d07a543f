package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/clock"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
)

// TicketStore is the slice of ticket persistence the sweeper needs.
type TicketStore interface {
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	CloseIfOverdue(ctx context.Context, id string, now time.Time) (bool, error)
}

// Sweeper periodically force-closes tickets whose response deadline has
// passed. It owns its schedule: Start launches the recurring sweep,
// Stop halts scheduling and waits for an in-flight pass to finish.
// The resolution deadline never drives closure, only the response one.
type Sweeper struct {
	tickets    TicketStore
	clk        clock.Clock
	interval   time.Duration
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a sweeper. A non-positive interval falls back to one
// minute, matching the original schedule.
func New(tickets TicketStore, clk clock.Clock, interval time.Duration, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		tickets:    tickets,
		clk:        clk,
		interval:   interval,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the recurring sweep in a background goroutine. The
// ticker is created here, not in the goroutine, so a tick scheduled
// right after Start returns is never missed.
func (s *Sweeper) Start() {
	if s.started {
		return
	}
	s.started = true
	ticker := s.clk.NewTicker(s.interval)
	go s.run(ticker)
}

// Stop halts scheduling and blocks until the in-flight sweep, if any,
// has finished. Safe to call more than once.
func (s *Sweeper) Stop() {
	if !s.started {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Sweeper) run(ticker *clock.Ticker) {
	defer close(s.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			closed, err := s.Sweep(context.Background())
			if err != nil {
				s.logger.Error("overdue sweep failed", zap.Error(err))
				continue
			}
			if closed > 0 {
				s.logger.Info("overdue sweep finished", zap.Int("closed", closed))
			}
		}
	}
}

// Sweep runs a single pass: every ticket with status != closed and
// responseDueDate strictly before now is force-closed. Each closure is
// an independent conditional update; one ticket's failure is logged and
// does not stop the rest of the pass. Returns the number of tickets
// closed. Re-running a pass is idempotent: the query excludes closed
// tickets, so nothing is closed twice.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clk.Now()
	overdue, err := s.tickets.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range overdue {
		ticket := &overdue[i]
		transitioned, err := s.tickets.CloseIfOverdue(ctx, ticket.ID, now)
		if err != nil {
			s.logger.Error("failed to close overdue ticket",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		if !transitioned {
			// Raced with a concurrent close; nothing to do.
			continue
		}
		closed++
		s.logger.Info("ticket automatically closed due to overdue response time",
			zap.String("ticket_id", ticket.ID))
		s.publishForceClosed(ctx, ticket, now)
	}

	s.metrics.RecordSweepClosed(closed)
	return closed, nil
}

func (s *Sweeper) publishForceClosed(ctx context.Context, ticket *domain.Ticket, now time.Time) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketForceClosed,
		TicketID:  ticket.ID,
		Actor:     events.Actor{System: true},
		Timestamp: now,
		Payload: events.TicketForceClosedPayload{
			ResponseDueDate: ticket.ResponseDueDate,
			SweptAt:         now,
		},
	})
}

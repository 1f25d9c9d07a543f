package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/clock"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
)

// fakeTicketStore mimics the overdue queries against an in-memory
// ticket set, with the same strict-comparison semantics as the SQL.
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	failIDs map[string]error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tickets: make(map[string]*domain.Ticket),
		failIDs: make(map[string]error),
	}
}

func (s *fakeTicketStore) add(ticket *domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket
}

func (s *fakeTicketStore) status(id string) domain.TicketStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id].Status
}

func (s *fakeTicketStore) ListOverdue(_ context.Context, now time.Time) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if ticket.Status != domain.TicketStatusClosed &&
			ticket.ResponseDueDate != nil && ticket.ResponseDueDate.Before(now) {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (s *fakeTicketStore) CloseIfOverdue(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failIDs[id]; ok {
		return false, err
	}
	ticket, ok := s.tickets[id]
	if !ok {
		return false, nil
	}
	if ticket.Status == domain.TicketStatusClosed ||
		ticket.ResponseDueDate == nil || !ticket.ResponseDueDate.Before(now) {
		return false, nil
	}
	ticket.Status = domain.TicketStatusClosed
	return true, nil
}

func ticketWithDue(id string, status domain.TicketStatus, responseDue time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:              id,
		Status:          status,
		Priority:        domain.TicketPriorityMedium,
		ResponseDueDate: &responseDue,
	}
}

func newTestSweeper(store *fakeTicketStore, clk clock.Clock, dispatcher events.Dispatcher) *Sweeper {
	return New(store, clk, time.Minute, dispatcher, observability.NewMetrics(), zap.NewNop())
}

func TestSweepClosesOverdueTickets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()

	store.add(ticketWithDue("past", domain.TicketStatusOpen, now.Add(-time.Second)))
	store.add(ticketWithDue("future", domain.TicketStatusOpen, now.Add(time.Second)))
	store.add(ticketWithDue("exact", domain.TicketStatusOpen, now))

	s := newTestSweeper(store, clk, nil)
	closed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	assert.Equal(t, domain.TicketStatusClosed, store.status("past"))
	assert.Equal(t, domain.TicketStatusOpen, store.status("future"))
	// Exactly at the deadline is not yet overdue.
	assert.Equal(t, domain.TicketStatusOpen, store.status("exact"))
}

func TestSweepIgnoresClosedTickets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()
	store.add(ticketWithDue("closed", domain.TicketStatusClosed, now.Add(-time.Hour)))

	s := newTestSweeper(store, clk, nil)
	closed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()
	store.add(ticketWithDue("overdue", domain.TicketStatusOpen, now.Add(-time.Minute)))

	s := newTestSweeper(store, clk, nil)

	closed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	closed, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestSweepIsolatesPerTicketFailures(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()

	store.add(ticketWithDue("broken", domain.TicketStatusOpen, now.Add(-time.Hour)))
	store.add(ticketWithDue("fine", domain.TicketStatusOpen, now.Add(-time.Hour)))
	store.failIDs["broken"] = errors.New("deadlock detected")

	s := newTestSweeper(store, clk, nil)
	closed, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, closed)
	assert.Equal(t, domain.TicketStatusClosed, store.status("fine"))
	assert.Equal(t, domain.TicketStatusOpen, store.status("broken"))
}

func TestSweepPublishesForceClosedEvents(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()
	store.add(ticketWithDue("overdue", domain.TicketStatusOpen, now.Add(-time.Minute)))

	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	var received []events.Event
	dispatcher.Subscribe(events.EventTicketForceClosed, func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	})

	s := newTestSweeper(store, clk, dispatcher)
	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "overdue", received[0].TicketID)
	assert.True(t, received[0].Actor.System)

	payload, ok := received[0].Payload.(events.TicketForceClosedPayload)
	require.True(t, ok)
	assert.Equal(t, now, payload.SweptAt)
}

func TestSweeperStartStop(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := newFakeTicketStore()
	store.add(ticketWithDue("overdue", domain.TicketStatusOpen, now.Add(-time.Minute)))

	s := newTestSweeper(store, clk, nil)
	s.Start()

	// Start registers the ticker before returning, so one tick issued
	// immediately afterwards must reach the sweep loop.
	clk.Tick()
	require.Eventually(t, func() bool {
		return store.status("overdue") == domain.TicketStatusClosed
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop() // safe to call twice
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestSweeper(newFakeTicketStore(), clock.NewFake(time.Now()), nil)
	s.Stop()
}

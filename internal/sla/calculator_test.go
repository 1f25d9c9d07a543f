package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type stubPolicyStore struct {
	policies map[domain.TicketPriority]*domain.SLAPolicy
	err      error
}

func (s *stubPolicyStore) GetByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	if s.err != nil {
		return nil, s.err
	}
	policy, ok := s.policies[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return policy, nil
}

func seededStore() *stubPolicyStore {
	return &stubPolicyStore{policies: map[domain.TicketPriority]*domain.SLAPolicy{
		domain.TicketPriorityLow:      {Priority: domain.TicketPriorityLow, ResponseTimeHours: 24, ResolutionTimeHours: 72},
		domain.TicketPriorityMedium:   {Priority: domain.TicketPriorityMedium, ResponseTimeHours: 12, ResolutionTimeHours: 48},
		domain.TicketPriorityHigh:     {Priority: domain.TicketPriorityHigh, ResponseTimeHours: 4, ResolutionTimeHours: 24},
		domain.TicketPriorityCritical: {Priority: domain.TicketPriorityCritical, ResponseTimeHours: 1, ResolutionTimeHours: 8},
	}}
}

func TestDueDatesPerPriority(t *testing.T) {
	calc := NewCalculator(seededStore())
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		priority        domain.TicketPriority
		responseHours   int
		resolutionHours int
	}{
		{domain.TicketPriorityLow, 24, 72},
		{domain.TicketPriorityMedium, 12, 48},
		{domain.TicketPriorityHigh, 4, 24},
		{domain.TicketPriorityCritical, 1, 8},
	}

	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			responseDue, resolutionDue, err := calc.DueDates(context.Background(), tc.priority, now)
			require.NoError(t, err)
			assert.Equal(t, now.Add(time.Duration(tc.responseHours)*time.Hour), responseDue)
			assert.Equal(t, now.Add(time.Duration(tc.resolutionHours)*time.Hour), resolutionDue)
		})
	}
}

func TestDueDatesMissingPolicy(t *testing.T) {
	calc := NewCalculator(&stubPolicyStore{policies: map[domain.TicketPriority]*domain.SLAPolicy{}})

	_, _, err := calc.DueDates(context.Background(), domain.TicketPriorityHigh, time.Now())
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SLA_POLICY_NOT_FOUND", domainErr.Code)
}

func TestDueDatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	calc := NewCalculator(&stubPolicyStore{err: storeErr})

	_, _, err := calc.DueDates(context.Background(), domain.TicketPriorityLow, time.Now())
	require.ErrorIs(t, err, storeErr)
}

package sla

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// PolicyStore provides SLA policy lookup by priority.
type PolicyStore interface {
	GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error)
}

// Calculator derives response and resolution due dates from the SLA
// policy table. Deterministic given now; the store is its only input.
type Calculator struct {
	policies PolicyStore
}

// NewCalculator constructs the calculator.
func NewCalculator(policies PolicyStore) *Calculator {
	return &Calculator{policies: policies}
}

// DueDates returns now + responseTimeHours and now + resolutionTimeHours
// for the priority's policy. Setup seeds a policy for every priority,
// but the lookup is still checked: a missing row fails with
// SLA_POLICY_NOT_FOUND rather than assuming or defaulting budgets.
func (c *Calculator) DueDates(ctx context.Context, priority domain.TicketPriority, now time.Time) (time.Time, time.Time, error) {
	policy, err := c.policies.GetByPriority(ctx, priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, time.Time{}, apperrors.NewPolicyNotFound(string(priority))
		}
		return time.Time{}, time.Time{}, err
	}

	responseDue := now.Add(time.Duration(policy.ResponseTimeHours) * time.Hour)
	resolutionDue := now.Add(time.Duration(policy.ResolutionTimeHours) * time.Hour)
	return responseDue, resolutionDue, nil
}

package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
)

type stubGroupStore struct {
	tagsByAgent map[string][]string
	calls       int
}

func (s *stubGroupStore) ListTagIDsByAgent(_ context.Context, agentID string) ([]string, error) {
	s.calls++
	return s.tagsByAgent[agentID], nil
}

func newTestAuthorizer(store *stubGroupStore) *Authorizer {
	return NewAuthorizer(NewResolver(store, nil, time.Minute, zap.NewNop()))
}

func TestAdminCanAccessAnyTicket(t *testing.T) {
	authorizer := newTestAuthorizer(&stubGroupStore{})
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}
	ticket := &domain.Ticket{ID: "t1", CustomerID: "someone-else"}

	allowed, err := authorizer.CanAccess(context.Background(), admin, ticket)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCustomerAccessOwnTicketsOnly(t *testing.T) {
	authorizer := newTestAuthorizer(&stubGroupStore{})
	customer := &domain.User{ID: "c1", Role: domain.RoleCustomer}

	own := &domain.Ticket{ID: "t1", CustomerID: "c1"}
	other := &domain.Ticket{ID: "t2", CustomerID: "c2"}

	allowed, err := authorizer.CanAccess(context.Background(), customer, own)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = authorizer.CanAccess(context.Background(), customer, other)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAgentAccessRequiresTagOverlap(t *testing.T) {
	store := &stubGroupStore{tagsByAgent: map[string][]string{
		"agent-1": {"billing", "network"},
	}}
	authorizer := newTestAuthorizer(store)
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent}

	overlap := &domain.Ticket{ID: "t1", CustomerID: "c1", TagIDs: []string{"network", "hardware"}}
	disjoint := &domain.Ticket{ID: "t2", CustomerID: "c1", TagIDs: []string{"hardware"}}

	allowed, err := authorizer.CanAccess(context.Background(), agent, overlap)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = authorizer.CanAccess(context.Background(), agent, disjoint)
	require.NoError(t, err)
	assert.False(t, allowed)
}

// Assignment carries no authority. An agent assigned to a ticket whose
// tags they cannot reach is still denied.
func TestAssignmentGrantsNothing(t *testing.T) {
	authorizer := newTestAuthorizer(&stubGroupStore{})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent}
	agentID := agent.ID
	ticket := &domain.Ticket{ID: "t1", CustomerID: "c1", AgentID: &agentID, TagIDs: []string{"billing"}}

	allowed, err := authorizer.CanAccess(context.Background(), agent, ticket)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestUntaggedTicketUnreachableToAgents(t *testing.T) {
	store := &stubGroupStore{tagsByAgent: map[string][]string{
		"agent-1": {"billing", "network", "hardware"},
	}}
	authorizer := newTestAuthorizer(store)
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent}
	ticket := &domain.Ticket{ID: "t1", CustomerID: "c1"}

	allowed, err := authorizer.CanAccess(context.Background(), agent, ticket)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAgentWithNoGroupsSeesNothing(t *testing.T) {
	authorizer := newTestAuthorizer(&stubGroupStore{})
	agent := &domain.User{ID: "lonely", Role: domain.RoleAgent}
	ticket := &domain.Ticket{ID: "t1", CustomerID: "c1", TagIDs: []string{"billing"}}

	allowed, err := authorizer.CanAccess(context.Background(), agent, ticket)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNilUserOrTicketDenied(t *testing.T) {
	authorizer := newTestAuthorizer(&stubGroupStore{})

	allowed, err := authorizer.CanAccess(context.Background(), nil, &domain.Ticket{})
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = authorizer.CanAccess(context.Background(), &domain.User{Role: domain.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

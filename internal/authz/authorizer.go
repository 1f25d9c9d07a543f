package authz

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Authorizer decides whether a user may view or act on a ticket. Every
// ticket-scoped endpoint (single fetch, update, response creation,
// attachment download) goes through this one predicate.
type Authorizer struct {
	resolver *Resolver
}

// NewAuthorizer constructs the authorizer.
func NewAuthorizer(resolver *Resolver) *Authorizer {
	return &Authorizer{resolver: resolver}
}

// CanAccess applies the role-based access rule:
//
//   - admin: always allowed.
//   - customer: allowed only on their own tickets.
//   - agent: allowed iff the agent's effective tags intersect the
//     ticket's tags. Assignment via AgentID grants nothing, and a
//     ticket with no tags is unreachable to any agent.
func (a *Authorizer) CanAccess(ctx context.Context, user *domain.User, ticket *domain.Ticket) (bool, error) {
	if user == nil || ticket == nil {
		return false, nil
	}

	switch user.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RoleCustomer:
		return ticket.CustomerID == user.ID, nil
	case domain.RoleAgent:
		tags, err := a.resolver.EffectiveTags(ctx, user.ID)
		if err != nil {
			return false, err
		}
		for _, tagID := range ticket.TagIDs {
			if _, ok := tags[tagID]; ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

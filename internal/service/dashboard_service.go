package service

import (
	"context"
	"math"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// DashboardService assembles the role-specific overview screens.
type DashboardService struct {
	tickets  repository.TicketRepository
	users    repository.UserRepository
	groups   repository.GroupRepository
	resolver *authz.Resolver
}

// NewDashboardService constructs the service.
func NewDashboardService(
	tickets repository.TicketRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	resolver *authz.Resolver,
) *DashboardService {
	return &DashboardService{tickets: tickets, users: users, groups: groups, resolver: resolver}
}

// TicketCounts breaks a ticket list down by lifecycle state.
type TicketCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// CustomerDashboard summarizes a customer's own tickets.
type CustomerDashboard struct {
	Counts             TicketCounts    `json:"counts"`
	AvgResolutionHours int             `json:"avg_resolution_hours"`
	RecentTickets      []domain.Ticket `json:"recent_tickets"`
}

// AgentDashboard summarizes the tickets visible to an agent.
type AgentDashboard struct {
	Counts             TicketCounts    `json:"counts"`
	AvgResolutionHours int             `json:"avg_resolution_hours"`
	EffectiveTagCount  int             `json:"effective_tag_count"`
	RecentTickets      []domain.Ticket `json:"recent_tickets"`
}

// AdminDashboard summarizes the whole system.
type AdminDashboard struct {
	Tickets       repository.TicketStatistics `json:"tickets"`
	TotalUsers    int                         `json:"total_users"`
	Customers     int                         `json:"customers"`
	Agents        int                         `json:"agents"`
	Groups        int                         `json:"groups"`
	RecentTickets []domain.Ticket             `json:"recent_tickets"`
}

// ForCustomer builds the dashboard over the customer's own tickets.
func (s *DashboardService) ForCustomer(ctx context.Context, customer *domain.User) (*CustomerDashboard, error) {
	tickets, err := s.tickets.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &CustomerDashboard{
		Counts:             countByStatus(tickets),
		AvgResolutionHours: avgResolutionHours(tickets),
		RecentTickets:      firstN(tickets, 5),
	}, nil
}

// ForAgent builds the dashboard over the tickets the agent can see. An
// agent with no effective tags gets all-zero counts.
func (s *DashboardService) ForAgent(ctx context.Context, agent *domain.User) (*AgentDashboard, error) {
	tags, err := s.resolver.EffectiveTags(ctx, agent.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tagIDs := make([]string, 0, len(tags))
	for tagID := range tags {
		tagIDs = append(tagIDs, tagID)
	}

	tickets, err := s.tickets.ListByTagIDs(ctx, tagIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AgentDashboard{
		Counts:             countByStatus(tickets),
		AvgResolutionHours: avgResolutionHours(tickets),
		EffectiveTagCount:  len(tags),
		RecentTickets:      firstN(tickets, 5),
	}, nil
}

// ForAdmin builds the system-wide dashboard.
func (s *DashboardService) ForAdmin(ctx context.Context) (*AdminDashboard, error) {
	stats, err := s.tickets.Statistics(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	customers, err := s.users.CountByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agents, err := s.users.CountByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	groupCount, err := s.groups.Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recent, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Limit: 10})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &AdminDashboard{
		Tickets:       stats,
		TotalUsers:    totalUsers,
		Customers:     customers,
		Agents:        agents,
		Groups:        groupCount,
		RecentTickets: recent,
	}, nil
}

func countByStatus(tickets []domain.Ticket) TicketCounts {
	counts := TicketCounts{Total: len(tickets)}
	for _, ticket := range tickets {
		switch ticket.Status {
		case domain.TicketStatusOpen:
			counts.Open++
		case domain.TicketStatusInProgress:
			counts.InProgress++
		case domain.TicketStatusResolved:
			counts.Resolved++
		case domain.TicketStatusClosed:
			counts.Closed++
		}
	}
	return counts
}

// avgResolutionHours averages created-to-last-update time over resolved
// tickets, rounded to whole hours. Zero when nothing is resolved.
func avgResolutionHours(tickets []domain.Ticket) int {
	var total float64
	var resolved int
	for _, ticket := range tickets {
		if ticket.Status != domain.TicketStatusResolved {
			continue
		}
		total += ticket.UpdatedAt.Sub(ticket.CreatedAt).Hours()
		resolved++
	}
	if resolved == 0 {
		return 0
	}
	return int(math.Round(total / float64(resolved)))
}

func firstN(tickets []domain.Ticket, n int) []domain.Ticket {
	if len(tickets) <= n {
		return tickets
	}
	return tickets[:n]
}

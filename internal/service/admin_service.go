package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AdminService covers the admin-only management surface: tags, groups,
// SLA policies and the global ticket views. Every group mutation
// invalidates the cached effective tag sets, since visibility derives
// from group membership and tag coverage.
type AdminService struct {
	tags     repository.TagRepository
	groups   repository.GroupRepository
	policies repository.SLAPolicyRepository
	tickets  repository.TicketRepository
	users    repository.UserRepository
	resolver *authz.Resolver
}

// AdminDependencies bundles collaborators for the admin service.
type AdminDependencies struct {
	TagRepo    repository.TagRepository
	GroupRepo  repository.GroupRepository
	PolicyRepo repository.SLAPolicyRepository
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Resolver   *authz.Resolver
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		tags:     deps.TagRepo,
		groups:   deps.GroupRepo,
		policies: deps.PolicyRepo,
		tickets:  deps.TicketRepo,
		users:    deps.UserRepo,
		resolver: deps.Resolver,
	}
}

// --- tags ---

// TagInput describes a tag create or update payload.
type TagInput struct {
	Name        string
	Description string
}

// CreateTag creates a tag.
func (s *AdminService) CreateTag(ctx context.Context, input TagInput) (*domain.Tag, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("tag name required", nil)
	}
	tag := &domain.Tag{Name: name, Description: strings.TrimSpace(input.Description)}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tag, nil
}

// UpdateTag renames or re-describes a tag.
func (s *AdminService) UpdateTag(ctx context.Context, tagID string, input TagInput) (*domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return nil, notFoundOr(err, "tag", tagID)
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		tag.Name = name
	}
	tag.Description = strings.TrimSpace(input.Description)
	if err := s.tags.Update(ctx, tag); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tag, nil
}

// GetTag fetches a single tag.
func (s *AdminService) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return nil, notFoundOr(err, "tag", tagID)
	}
	return tag, nil
}

// ListTags returns all tags.
func (s *AdminService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tags, nil
}

// --- groups ---

// GroupInput describes a group create or update payload. Nil slices
// leave the corresponding membership untouched on update.
type GroupInput struct {
	Name        string
	Description string
	TagIDs      *[]string
	AgentIDs    *[]string
}

// CreateGroup creates a group and its initial tag coverage and agent
// membership.
func (s *AdminService) CreateGroup(ctx context.Context, input GroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("group name required", nil)
	}

	group := &domain.Group{Name: name, Description: strings.TrimSpace(input.Description)}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.TagIDs != nil {
		if err := s.groups.SetTags(ctx, group.ID, *input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		group.TagIDs = *input.TagIDs
	}
	if input.AgentIDs != nil {
		if err := s.verifyAgents(ctx, *input.AgentIDs); err != nil {
			return nil, err
		}
		if err := s.groups.SetAgents(ctx, group.ID, *input.AgentIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		group.AgentIDs = *input.AgentIDs
	}

	s.resolver.Invalidate(ctx)
	return group, nil
}

// UpdateGroup applies a group update and replaces memberships when the
// corresponding slice is present.
func (s *AdminService) UpdateGroup(ctx context.Context, groupID string, input GroupInput) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOr(err, "group", groupID)
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		group.Name = name
	}
	group.Description = strings.TrimSpace(input.Description)
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.TagIDs != nil {
		if err := s.groups.SetTags(ctx, group.ID, *input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		group.TagIDs = *input.TagIDs
	}
	if input.AgentIDs != nil {
		if err := s.verifyAgents(ctx, *input.AgentIDs); err != nil {
			return nil, err
		}
		if err := s.groups.SetAgents(ctx, group.ID, *input.AgentIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		group.AgentIDs = *input.AgentIDs
	}

	s.resolver.Invalidate(ctx)
	return group, nil
}

// GetGroup fetches a single group with its memberships.
func (s *AdminService) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOr(err, "group", groupID)
	}
	return group, nil
}

// ListGroups returns all groups.
func (s *AdminService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return groups, nil
}

// verifyAgents rejects member ids that do not resolve to agent-role
// users.
func (s *AdminService) verifyAgents(ctx context.Context, agentIDs []string) error {
	for _, agentID := range agentIDs {
		user, err := s.users.GetByID(ctx, agentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("unknown agent", map[string]any{"agent_id": agentID})
			}
			return apperrors.MapError(err)
		}
		if user.Role != domain.RoleAgent {
			return apperrors.NewValidationError("group members must be agents", map[string]any{"user_id": agentID, "role": user.Role})
		}
	}
	return nil
}

// --- SLA policies ---

// SLAPolicyInput describes an SLA policy payload.
type SLAPolicyInput struct {
	Priority            domain.TicketPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
}

// CreateSLAPolicy creates the policy for a priority. At most one policy
// may exist per priority.
func (s *AdminService) CreateSLAPolicy(ctx context.Context, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := validatePolicyInput(input); err != nil {
		return nil, err
	}

	if _, err := s.policies.GetByPriority(ctx, input.Priority); err == nil {
		return nil, apperrors.NewConflict("policy already exists for priority", map[string]any{"priority": input.Priority})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	policy := &domain.SLAPolicy{
		Priority:            input.Priority,
		ResponseTimeHours:   input.ResponseTimeHours,
		ResolutionTimeHours: input.ResolutionTimeHours,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// UpdateSLAPolicy changes the time budgets of an existing policy. The
// priority binding is immutable. Existing tickets keep their due dates;
// only later computations see the new budgets.
func (s *AdminService) UpdateSLAPolicy(ctx context.Context, policyID string, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if input.ResponseTimeHours <= 0 || input.ResolutionTimeHours <= 0 {
		return nil, apperrors.NewValidationError("time budgets must be positive", nil)
	}

	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return nil, notFoundOr(err, "sla policy", policyID)
	}
	policy.ResponseTimeHours = input.ResponseTimeHours
	policy.ResolutionTimeHours = input.ResolutionTimeHours
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// ListSLAPolicies returns all policies.
func (s *AdminService) ListSLAPolicies(ctx context.Context) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

func validatePolicyInput(input SLAPolicyInput) error {
	if !domain.ValidPriority(input.Priority) {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.ResponseTimeHours <= 0 || input.ResolutionTimeHours <= 0 {
		return apperrors.NewValidationError("time budgets must be positive", nil)
	}
	return nil
}

// --- global ticket views ---

// ListAllTickets returns tickets matching the filter, unscoped by
// visibility.
func (s *AdminService) ListAllTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Statistics returns ticket counts by lifecycle state.
func (s *AdminService) Statistics(ctx context.Context) (repository.TicketStatistics, error) {
	stats, err := s.tickets.Statistics(ctx)
	if err != nil {
		return repository.TicketStatistics{}, apperrors.MapError(err)
	}
	return stats, nil
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

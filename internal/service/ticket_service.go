package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/clock"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/sla"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates ticket workflows. Every single-ticket read
// or write funnels through the one access predicate in authz.
type TicketService struct {
	tickets     repository.TicketRepository
	responses   repository.ResponseRepository
	attachments repository.AttachmentRepository
	calculator  *sla.Calculator
	authorizer  *authz.Authorizer
	resolver    *authz.Resolver
	dispatcher  events.Dispatcher
	clk         clock.Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	ResponseRepo   repository.ResponseRepository
	AttachmentRepo repository.AttachmentRepository
	Calculator     *sla.Calculator
	Authorizer     *authz.Authorizer
	Resolver       *authz.Resolver
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		responses:   deps.ResponseRepo,
		attachments: deps.AttachmentRepo,
		calculator:  deps.Calculator,
		authorizer:  deps.Authorizer,
		resolver:    deps.Resolver,
		dispatcher:  deps.Dispatcher,
		clk:         clk,
	}
}

// AttachmentInput defines uploaded file metadata.
type AttachmentInput struct {
	FileName  string
	MimeType  string
	SizeBytes int64
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	TagIDs      []string
	Attachments []AttachmentInput
}

// TicketUpdateInput allow-lists the mutable ticket fields. Due dates,
// ids and the owner are never client-writable; due dates change only
// as a consequence of a priority change.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AgentID     *string
	TagIDs      *[]string
}

// CreateTicket creates a ticket for a customer. Due dates are derived
// from the SLA policy for the requested priority, anchored at now.
func (s *TicketService) CreateTicket(ctx context.Context, customer *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	now := s.clk.Now()
	responseDue, resolutionDue, err := s.calculator.DueDates(ctx, input.Priority, now)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:             title,
		Description:       description,
		Status:            domain.TicketStatusOpen,
		Priority:          input.Priority,
		ResponseDueDate:   &responseDue,
		ResolutionDueDate: &resolutionDue,
		CustomerID:        customer.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if len(input.TagIDs) > 0 {
		if err := s.tickets.SetTags(ctx, ticket.ID, input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.TagIDs = input.TagIDs
	}

	for _, att := range input.Attachments {
		record := &domain.FileAttachment{
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
			StorageKey: uuid.NewString(),
			TicketID:   &ticket.ID,
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(customer),
		Payload: events.TicketCreatedPayload{
			Priority:          ticket.Priority,
			Title:             ticket.Title,
			TagIDs:            ticket.TagIDs,
			ResponseDueDate:   ticket.ResponseDueDate,
			ResolutionDueDate: ticket.ResolutionDueDate,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to the user: customers see
// their own, agents see tickets intersecting their effective tags,
// admins see everything.
func (s *TicketService) ListTickets(ctx context.Context, user *domain.User) ([]domain.Ticket, error) {
	switch user.Role {
	case domain.RoleCustomer:
		return s.tickets.ListByCustomer(ctx, user.ID)
	case domain.RoleAgent:
		tags, err := s.resolver.EffectiveTags(ctx, user.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		tagIDs := make([]string, 0, len(tags))
		for tagID := range tags {
			tagIDs = append(tagIDs, tagID)
		}
		return s.tickets.ListByTagIDs(ctx, tagIDs)
	case domain.RoleAdmin:
		return s.tickets.ListWithFilter(ctx, repository.TicketFilter{})
	}
	return nil, apperrors.NewForbidden("unknown role")
}

// GetTicket fetches a single ticket, its response thread, and the
// files attached directly to the ticket, enforcing the access
// predicate.
func (s *TicketService) GetTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, []domain.TicketResponse, []domain.FileAttachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.requireAccess(ctx, user, ticket); err != nil {
		return nil, nil, nil, err
	}

	responses, err := s.responsesWithAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, responses, attachments, nil
}

// UpdateTicket applies an allow-listed update. A priority change
// replaces both due dates, anchored at the time of the update; progress
// toward the previous deadlines is discarded. Status may be set to any
// legal value, including regressions such as resolved back to open.
func (s *TicketService) UpdateTicket(ctx context.Context, user *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, user, ticket); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	oldPriority := ticket.Priority

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = description
	}
	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.Priority != nil && *input.Priority != ticket.Priority {
		if !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		responseDue, resolutionDue, err := s.calculator.DueDates(ctx, *input.Priority, s.clk.Now())
		if err != nil {
			return nil, err
		}
		ticket.Priority = *input.Priority
		ticket.ResponseDueDate = &responseDue
		ticket.ResolutionDueDate = &resolutionDue
	}
	if input.AgentID != nil {
		if *input.AgentID == "" {
			ticket.AgentID = nil
		} else {
			ticket.AgentID = input.AgentID
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.TagIDs != nil {
		if err := s.tickets.SetTags(ctx, ticket.ID, *input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.TagIDs = *input.TagIDs
	}

	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    userActor(user),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	if ticket.Priority != oldPriority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    userActor(user),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority:       oldPriority,
				NewPriority:       ticket.Priority,
				ResponseDueDate:   ticket.ResponseDueDate,
				ResolutionDueDate: ticket.ResolutionDueDate,
			},
		})
	}
	return ticket, nil
}

// AddResponse appends a response to a ticket thread. Access is gated by
// the same predicate as the ticket itself.
func (s *TicketService) AddResponse(ctx context.Context, user *domain.User, ticketID, content string, attachments []AttachmentInput) (*domain.TicketResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, user, ticket); err != nil {
		return nil, err
	}

	response := &domain.TicketResponse{
		TicketID: ticket.ID,
		UserID:   user.ID,
		Content:  content,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, att := range attachments {
		record := &domain.FileAttachment{
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
			StorageKey: uuid.NewString(),
			ResponseID: &response.ID,
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			return nil, apperrors.MapError(err)
		}
		response.Attachments = append(response.Attachments, *record)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResponseAdded,
		TicketID: ticket.ID,
		Actor:    userActor(user),
		Payload: events.TicketResponseAddedPayload{
			ResponseID: response.ID,
			AuthorID:   user.ID,
		},
	})
	return response, nil
}

// GetAttachment fetches attachment metadata, enforcing the access
// predicate of the ticket the file belongs to (directly or through its
// response).
func (s *TicketService) GetAttachment(ctx context.Context, user *domain.User, attachmentID string) (*domain.FileAttachment, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, apperrors.MapError(err)
	}

	ticketID := attachment.TicketID
	if ticketID == nil && attachment.ResponseID != nil {
		response, err := s.responses.GetByID(ctx, *attachment.ResponseID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticketID = &response.TicketID
	}
	if ticketID == nil {
		return nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
	}

	ticket, err := s.loadTicket(ctx, *ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, user, ticket); err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) requireAccess(ctx context.Context, user *domain.User, ticket *domain.Ticket) error {
	allowed, err := s.authorizer.CanAccess(ctx, user, ticket)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !allowed {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

func (s *TicketService) responsesWithAttachments(ctx context.Context, ticketID string) ([]domain.TicketResponse, error) {
	responses, err := s.responses.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range responses {
		attachments, err := s.attachments.ListByResponse(ctx, responses[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		responses[i].Attachments = attachments
	}
	return responses, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clk.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{System: true}
	}
	id := user.ID
	return events.Actor{UserID: &id, Role: user.Role}
}

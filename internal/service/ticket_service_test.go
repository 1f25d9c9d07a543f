package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/clock"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/sla"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// --- in-memory fakes ---

type memTicketRepo struct {
	seq     int
	tickets map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	copied.TagIDs = r.tickets[ticket.ID].TagIDs
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.CustomerID == customerID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (r *memTicketRepo) ListByTagIDs(_ context.Context, tagIDs []string) ([]domain.Ticket, error) {
	if len(tagIDs) == 0 {
		return []domain.Ticket{}, nil
	}
	wanted := make(map[string]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		wanted[id] = struct{}{}
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		for _, tagID := range ticket.TagIDs {
			if _, ok := wanted[tagID]; ok {
				result = append(result, *ticket)
				break
			}
		}
	}
	return result, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *memTicketRepo) ListOverdue(_ context.Context, _ time.Time) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *memTicketRepo) CloseIfOverdue(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (r *memTicketRepo) SetTags(_ context.Context, ticketID string, tagIDs []string) error {
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.TagIDs = append([]string{}, tagIDs...)
	return nil
}

func (r *memTicketRepo) Statistics(_ context.Context) (repository.TicketStatistics, error) {
	return repository.TicketStatistics{}, nil
}

type memResponseRepo struct {
	seq       int
	responses map[string]*domain.TicketResponse
}

func newMemResponseRepo() *memResponseRepo {
	return &memResponseRepo{responses: make(map[string]*domain.TicketResponse)}
}

func (r *memResponseRepo) Create(_ context.Context, response *domain.TicketResponse) error {
	r.seq++
	response.ID = fmt.Sprintf("response-%d", r.seq)
	copied := *response
	r.responses[response.ID] = &copied
	return nil
}

func (r *memResponseRepo) GetByID(_ context.Context, id string) (*domain.TicketResponse, error) {
	response, ok := r.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *response
	return &copied, nil
}

func (r *memResponseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketResponse, error) {
	var result []domain.TicketResponse
	for _, response := range r.responses {
		if response.TicketID == ticketID {
			result = append(result, *response)
		}
	}
	return result, nil
}

type memAttachmentRepo struct {
	seq         int
	attachments map[string]*domain.FileAttachment
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{attachments: make(map[string]*domain.FileAttachment)}
}

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.FileAttachment) error {
	r.seq++
	attachment.ID = fmt.Sprintf("attachment-%d", r.seq)
	copied := *attachment
	r.attachments[attachment.ID] = &copied
	return nil
}

func (r *memAttachmentRepo) GetByID(_ context.Context, id string) (*domain.FileAttachment, error) {
	attachment, ok := r.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *attachment
	return &copied, nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.FileAttachment, error) {
	var result []domain.FileAttachment
	for _, attachment := range r.attachments {
		if attachment.TicketID != nil && *attachment.TicketID == ticketID {
			result = append(result, *attachment)
		}
	}
	return result, nil
}

func (r *memAttachmentRepo) ListByResponse(_ context.Context, responseID string) ([]domain.FileAttachment, error) {
	var result []domain.FileAttachment
	for _, attachment := range r.attachments {
		if attachment.ResponseID != nil && *attachment.ResponseID == responseID {
			result = append(result, *attachment)
		}
	}
	return result, nil
}

type memPolicyStore struct {
	policies map[domain.TicketPriority]*domain.SLAPolicy
}

func (s *memPolicyStore) GetByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	policy, ok := s.policies[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return policy, nil
}

type memGroupStore struct {
	tagsByAgent map[string][]string
}

func (s *memGroupStore) ListTagIDsByAgent(_ context.Context, agentID string) ([]string, error) {
	return s.tagsByAgent[agentID], nil
}

// --- fixture ---

type ticketServiceFixture struct {
	service     *TicketService
	tickets     *memTicketRepo
	responses   *memResponseRepo
	attachments *memAttachmentRepo
	clk         *clock.Fake
	dispatcher  events.Dispatcher
	groups      *memGroupStore
}

func newTicketServiceFixture(t *testing.T) *ticketServiceFixture {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	tickets := newMemTicketRepo()
	responses := newMemResponseRepo()
	attachments := newMemAttachmentRepo()
	groups := &memGroupStore{tagsByAgent: make(map[string][]string)}
	dispatcher := events.NewInMemoryDispatcher()

	policies := &memPolicyStore{policies: map[domain.TicketPriority]*domain.SLAPolicy{
		domain.TicketPriorityLow:      {Priority: domain.TicketPriorityLow, ResponseTimeHours: 24, ResolutionTimeHours: 72},
		domain.TicketPriorityMedium:   {Priority: domain.TicketPriorityMedium, ResponseTimeHours: 12, ResolutionTimeHours: 48},
		domain.TicketPriorityHigh:     {Priority: domain.TicketPriorityHigh, ResponseTimeHours: 4, ResolutionTimeHours: 24},
		domain.TicketPriorityCritical: {Priority: domain.TicketPriorityCritical, ResponseTimeHours: 1, ResolutionTimeHours: 8},
	}}

	resolver := authz.NewResolver(groups, nil, 0, zap.NewNop())

	svc := NewTicketService(TicketDependencies{
		TicketRepo:     tickets,
		ResponseRepo:   responses,
		AttachmentRepo: attachments,
		Calculator:     sla.NewCalculator(policies),
		Authorizer:     authz.NewAuthorizer(resolver),
		Resolver:       resolver,
		Dispatcher:     dispatcher,
		Clock:          clk,
	})

	return &ticketServiceFixture{
		service:     svc,
		tickets:     tickets,
		responses:   responses,
		attachments: attachments,
		clk:         clk,
		dispatcher:  dispatcher,
		groups:      groups,
	}
}

func customer(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleCustomer}
}

func agent(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleAgent}
}

// --- tests ---

func TestCreateTicketDerivesDueDates(t *testing.T) {
	f := newTicketServiceFixture(t)
	now := f.clk.Now()

	ticket, err := f.service.CreateTicket(context.Background(), customer("c1"), TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot connect since this morning",
		Priority:    domain.TicketPriorityCritical,
		TagIDs:      []string{"network"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "c1", ticket.CustomerID)
	require.NotNil(t, ticket.ResponseDueDate)
	require.NotNil(t, ticket.ResolutionDueDate)
	assert.Equal(t, now.Add(1*time.Hour), *ticket.ResponseDueDate)
	assert.Equal(t, now.Add(8*time.Hour), *ticket.ResolutionDueDate)
	assert.Equal(t, []string{"network"}, ticket.TagIDs)
}

func TestCreateTicketRejectsInvalidPriority(t *testing.T) {
	f := newTicketServiceFixture(t)

	_, err := f.service.CreateTicket(context.Background(), customer("c1"), TicketCreateInput{
		Title:       "x",
		Description: "y",
		Priority:    "urgent",
	})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

// Changing priority replaces both due dates anchored at the update
// time; progress toward the old deadlines is discarded.
func TestPriorityChangeReanchorsDueDates(t *testing.T) {
	f := newTicketServiceFixture(t)
	owner := customer("c1")

	ticket, err := f.service.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot connect",
		Priority:    domain.TicketPriorityCritical,
	})
	require.NoError(t, err)

	f.clk.Advance(30 * time.Minute)
	updateTime := f.clk.Now()

	low := domain.TicketPriorityLow
	updated, err := f.service.UpdateTicket(context.Background(), owner, ticket.ID, TicketUpdateInput{
		Priority: &low,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityLow, updated.Priority)
	assert.Equal(t, updateTime.Add(24*time.Hour), *updated.ResponseDueDate)
	assert.Equal(t, updateTime.Add(72*time.Hour), *updated.ResolutionDueDate)
}

// Setting the same priority again leaves the due dates alone.
func TestSamePriorityKeepsDueDates(t *testing.T) {
	f := newTicketServiceFixture(t)
	owner := customer("c1")

	ticket, err := f.service.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       "printer",
		Description: "jammed",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	originalDue := *ticket.ResponseDueDate

	f.clk.Advance(time.Hour)
	high := domain.TicketPriorityHigh
	updated, err := f.service.UpdateTicket(context.Background(), owner, ticket.ID, TicketUpdateInput{
		Priority: &high,
	})
	require.NoError(t, err)
	assert.Equal(t, originalDue, *updated.ResponseDueDate)
}

func TestStatusRegressionAllowed(t *testing.T) {
	f := newTicketServiceFixture(t)
	owner := customer("c1")

	ticket, err := f.service.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       "question",
		Description: "how do I reset my password",
		Priority:    domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	resolved := domain.TicketStatusResolved
	_, err = f.service.UpdateTicket(context.Background(), owner, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)

	open := domain.TicketStatusOpen
	updated, err := f.service.UpdateTicket(context.Background(), owner, ticket.ID, TicketUpdateInput{Status: &open})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
}

func TestGetTicketDeniedForOtherCustomer(t *testing.T) {
	f := newTicketServiceFixture(t)

	ticket, err := f.service.CreateTicket(context.Background(), customer("c1"), TicketCreateInput{
		Title:       "private",
		Description: "details",
		Priority:    domain.TicketPriorityMedium,
	})
	require.NoError(t, err)

	_, _, _, err = f.service.GetTicket(context.Background(), customer("c2"), ticket.ID)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestListTicketsForAgentUsesEffectiveTags(t *testing.T) {
	f := newTicketServiceFixture(t)
	f.groups.tagsByAgent["agent-1"] = []string{"network"}

	_, err := f.service.CreateTicket(context.Background(), customer("c1"), TicketCreateInput{
		Title:       "VPN down",
		Description: "help",
		Priority:    domain.TicketPriorityHigh,
		TagIDs:      []string{"network"},
	})
	require.NoError(t, err)
	_, err = f.service.CreateTicket(context.Background(), customer("c2"), TicketCreateInput{
		Title:       "invoice",
		Description: "wrong amount",
		Priority:    domain.TicketPriorityLow,
		TagIDs:      []string{"billing"},
	})
	require.NoError(t, err)

	visible, err := f.service.ListTickets(context.Background(), agent("agent-1"))
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "VPN down", visible[0].Title)

	// An agent in no groups sees nothing, even though tickets exist.
	visible, err = f.service.ListTickets(context.Background(), agent("agent-2"))
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestAddResponseRequiresAccess(t *testing.T) {
	f := newTicketServiceFixture(t)

	ticket, err := f.service.CreateTicket(context.Background(), customer("c1"), TicketCreateInput{
		Title:       "broken keyboard",
		Description: "keys stuck",
		Priority:    domain.TicketPriorityMedium,
		TagIDs:      []string{"hardware"},
	})
	require.NoError(t, err)

	_, err = f.service.AddResponse(context.Background(), agent("outsider"), ticket.ID, "try turning it off", nil)
	require.Error(t, err)

	response, err := f.service.AddResponse(context.Background(), customer("c1"), ticket.ID, "still broken", nil)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, response.TicketID)
}

func TestGetAttachmentResolvesOwningTicket(t *testing.T) {
	f := newTicketServiceFixture(t)
	owner := customer("c1")

	ticket, err := f.service.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       "screenshot attached",
		Description: "see file",
		Priority:    domain.TicketPriorityLow,
		Attachments: []AttachmentInput{{FileName: "screen.png", MimeType: "image/png", SizeBytes: 1024}},
	})
	require.NoError(t, err)

	stored, err := f.attachments.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	attachment, err := f.service.GetAttachment(context.Background(), owner, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "screen.png", attachment.FileName)

	_, err = f.service.GetAttachment(context.Background(), customer("c2"), stored[0].ID)
	require.Error(t, err)
}

func TestUpdateTicketEmitsEvents(t *testing.T) {
	f := newTicketServiceFixture(t)
	owner := customer("c1")

	var types []events.EventType
	for _, et := range []events.EventType{events.EventTicketStatusChanged, events.EventTicketPriorityChanged} {
		eventType := et
		f.dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			types = append(types, event.Type)
			return nil
		})
	}

	ticket, err := f.service.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       "slow laptop",
		Description: "takes minutes to boot",
		Priority:    domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	inProgress := domain.TicketStatusInProgress
	high := domain.TicketPriorityHigh
	_, err = f.service.UpdateTicket(context.Background(), owner, ticket.ID, TicketUpdateInput{
		Status:   &inProgress,
		Priority: &high,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []events.EventType{
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
	}, types)
}

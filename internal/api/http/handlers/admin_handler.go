package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AdminHandler exposes the admin-only management surface.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// --- tags ---

// CreateTag POST /admin/tags.
func (h *AdminHandler) CreateTag(c *fiber.Ctx) error {
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tag, err := h.admin.CreateTag(c.Context(), service.TagInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": tagResponse(tag)})
}

// UpdateTag PUT /admin/tags/:id.
func (h *AdminHandler) UpdateTag(c *fiber.Ctx) error {
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tag, err := h.admin.UpdateTag(c.Context(), c.Params("id"), service.TagInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tagResponse(tag)})
}

// ListTags GET /admin/tags.
func (h *AdminHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.admin.ListTags(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TagResponse, 0, len(tags))
	for i := range tags {
		items = append(items, tagResponse(&tags[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// --- groups ---

// CreateGroup POST /admin/groups.
func (h *AdminHandler) CreateGroup(c *fiber.Ctx) error {
	var req dto.GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	group, err := h.admin.CreateGroup(c.Context(), groupInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": groupResponse(group)})
}

// UpdateGroup PUT /admin/groups/:id.
func (h *AdminHandler) UpdateGroup(c *fiber.Ctx) error {
	var req dto.GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	group, err := h.admin.UpdateGroup(c.Context(), c.Params("id"), groupInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groupResponse(group)})
}

// GetGroup GET /admin/groups/:id.
func (h *AdminHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.admin.GetGroup(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groupResponse(group)})
}

// ListGroups GET /admin/groups.
func (h *AdminHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.admin.ListGroups(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		items = append(items, groupResponse(&groups[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// --- SLA policies ---

// CreateSLAPolicy POST /admin/sla-policies.
func (h *AdminHandler) CreateSLAPolicy(c *fiber.Ctx) error {
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.admin.CreateSLAPolicy(c.Context(), service.SLAPolicyInput{
		Priority:            req.Priority,
		ResponseTimeHours:   req.ResponseTimeHours,
		ResolutionTimeHours: req.ResolutionTimeHours,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": policyResponse(policy)})
}

// UpdateSLAPolicy PUT /admin/sla-policies/:id.
func (h *AdminHandler) UpdateSLAPolicy(c *fiber.Ctx) error {
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.admin.UpdateSLAPolicy(c.Context(), c.Params("id"), service.SLAPolicyInput{
		Priority:            req.Priority,
		ResponseTimeHours:   req.ResponseTimeHours,
		ResolutionTimeHours: req.ResolutionTimeHours,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// ListSLAPolicies GET /admin/sla-policies.
func (h *AdminHandler) ListSLAPolicies(c *fiber.Ctx) error {
	policies, err := h.admin.ListSLAPolicies(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// --- global ticket views ---

// ListAllTickets GET /admin/tickets.
func (h *AdminHandler) ListAllTickets(c *fiber.Ctx) error {
	tickets, err := h.admin.ListAllTickets(c.Context(), parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Statistics GET /admin/tickets/statistics.
func (h *AdminHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.admin.Statistics(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"total":    stats.Total,
		"open":     stats.Open,
		"resolved": stats.Resolved,
		"closed":   stats.Closed,
	}})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TicketStatus(statusStr)
		filter.Status = &status
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.TicketPriority(priorityStr)
		filter.Priority = &priority
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AgentID = &agentID
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func groupInput(req dto.GroupRequest) service.GroupInput {
	return service.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		TagIDs:      req.TagIDs,
		AgentIDs:    req.AgentIDs,
	}
}

func tagResponse(tag *domain.Tag) dto.TagResponse {
	return dto.TagResponse{
		ID:          tag.ID,
		Name:        tag.Name,
		Description: tag.Description,
		CreatedAt:   tag.CreatedAt,
		UpdatedAt:   tag.UpdatedAt,
	}
}

func groupResponse(group *domain.Group) dto.GroupResponse {
	return dto.GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		TagIDs:      group.TagIDs,
		AgentIDs:    group.AgentIDs,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
}

func policyResponse(policy *domain.SLAPolicy) dto.SLAPolicyResponse {
	return dto.SLAPolicyResponse{
		ID:                  policy.ID,
		Priority:            policy.Priority,
		ResponseTimeHours:   policy.ResponseTimeHours,
		ResolutionTimeHours: policy.ResolutionTimeHours,
		CreatedAt:           policy.CreatedAt,
		UpdatedAt:           policy.UpdatedAt,
	}
}

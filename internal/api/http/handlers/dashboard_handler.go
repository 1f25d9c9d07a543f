package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// DashboardHandler serves the role-specific overview endpoints.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboardService}
}

// Customer GET /dashboard/customer.
func (h *DashboardHandler) Customer(c *fiber.Ctx) error {
	user, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	dashboard, err := h.dashboards.ForCustomer(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}

// Agent GET /dashboard/agent.
func (h *DashboardHandler) Agent(c *fiber.Ctx) error {
	user, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	dashboard, err := h.dashboards.ForAgent(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}

// Admin GET /admin/dashboard.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	dashboard, err := h.dashboards.ForAdmin(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}

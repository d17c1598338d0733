package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// HRHandler serves the canned HR lookups.
type HRHandler struct {
	deps Deps
}

// NewHRHandler returns a new handler instance.
func NewHRHandler(deps Deps) *HRHandler {
	return &HRHandler{deps: deps}
}

// SalarySlips returns the caller's recent salary slips.
func (h *HRHandler) SalarySlips(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "")
	if err != nil {
		return err
	}

	months := c.QueryInt("months", 6)
	result, err := h.deps.HR.MySalarySlips(c.UserContext(), rc, months)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// LeaveRequests returns the caller's leave requests.
func (h *HRHandler) LeaveRequests(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "")
	if err != nil {
		return err
	}

	result, err := h.deps.HR.MyLeaveRequests(c.UserContext(), rc, c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// TeamAttendance returns team attendance for one date.
func (h *HRHandler) TeamAttendance(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, c.Query("company"))
	if err != nil {
		return err
	}

	result, err := h.deps.HR.TeamAttendance(c.UserContext(), rc, c.Query("date"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// EmployeeProfile returns one employee record with sensitive fields masked
// unless it is the caller's own.
func (h *HRHandler) EmployeeProfile(c *fiber.Ctx) error {
	employeeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || employeeID <= 0 {
		return apperrors.NewValidationError("id must be a positive integer", nil)
	}

	rc, err := buildContext(c, h.deps, c.Query("company"))
	if err != nil {
		return err
	}

	result, err := h.deps.HR.EmployeeProfile(c.UserContext(), rc, employeeID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Headcount returns per-company active employee counts.
func (h *HRHandler) Headcount(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, c.Query("company"))
	if err != nil {
		return err
	}

	result, err := h.deps.HR.CompanyHeadcount(c.UserContext(), rc)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/api/dto"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// QueryHandler serves the table fence and raw scoped queries.
type QueryHandler struct {
	deps Deps
}

// NewQueryHandler returns a new handler instance.
func NewQueryHandler(deps Deps) *QueryHandler {
	return &QueryHandler{deps: deps}
}

// ListTables returns the caller's table allow-list.
func (h *QueryHandler) ListTables(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"tables": h.deps.Query.ListTables(rc),
		"role":   rc.Scope.Role().String(),
	})
}

// TableSchema describes one allowed table.
func (h *QueryHandler) TableSchema(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "")
	if err != nil {
		return err
	}

	table := c.Params("name")
	columns, err := h.deps.Query.TableSchema(c.UserContext(), rc, table)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"table": table, "columns": columns})
}

// Run executes one raw read-only statement under the caller's scope.
func (h *QueryHandler) Run(c *fiber.Ctx) error {
	var req dto.RunQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Query == "" {
		return apperrors.NewValidationError("query is required", nil)
	}

	rc, err := buildContext(c, h.deps, req.Company)
	if err != nil {
		return err
	}

	result, err := h.deps.Query.Run(c.UserContext(), rc, req.Query)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

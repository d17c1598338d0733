package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/auth"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/service"
)

// Deps bundles the services every handler draws from.
type Deps struct {
	Auth  *service.AuthService
	Query *service.QueryService
	HR    *service.HRService
}

// buildContext turns the middleware-resolved session into a fresh request
// context scoped to the requested company.
func buildContext(c *fiber.Ctx, deps Deps, company string) (*reqctx.RequestContext, error) {
	sess, err := auth.SessionFromLocals(c)
	if err != nil {
		return nil, err
	}
	return deps.Auth.BuildContext(c.UserContext(), sess, company)
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/service"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// SessionTokenHeader carries the caller's session token on authenticated
// routes.
const SessionTokenHeader = "X-Session-Token"

const sessionLocalKey = "hrms_session"

// SessionMiddleware resolves the session token on authenticated routes and
// stores the live session in request locals. Handlers compute scope
// themselves so each request gets a fresh one.
type SessionMiddleware struct {
	auth *service.AuthService
}

// NewSessionMiddleware builds the middleware.
func NewSessionMiddleware(auth *service.AuthService) *SessionMiddleware {
	return &SessionMiddleware{auth: auth}
}

// Handle rejects requests without a live session.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Get(SessionTokenHeader)
	if token == "" {
		return apperrors.NewNotAuthenticated("missing " + SessionTokenHeader + " header")
	}

	sess, err := m.auth.Resolve(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(sessionLocalKey, sess)
	return c.Next()
}

// SessionFromLocals returns the session stored by SessionMiddleware.
func SessionFromLocals(c *fiber.Ctx) (*domain.Session, error) {
	sess, ok := c.Locals(sessionLocalKey).(*domain.Session)
	if !ok || sess == nil {
		return nil, apperrors.NewNotAuthenticated("missing session")
	}
	return sess, nil
}

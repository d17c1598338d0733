package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/api/dto"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/auth"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// AuthHandler serves login, logout and identity inspection.
type AuthHandler struct {
	deps Deps
}

// NewAuthHandler returns a new handler instance.
func NewAuthHandler(deps Deps) *AuthHandler {
	return &AuthHandler{deps: deps}
}

// Login starts the OTP flow.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	env := environmentOrDefault(req.Environment)
	result, err := h.deps.Auth.Login(c.UserContext(), req.Phone, env)
	if err != nil {
		return err
	}

	if result.OTPPending {
		return c.JSON(fiber.Map{"status": "otp_sent"})
	}
	return c.JSON(fiber.Map{
		"status":      "authenticated",
		"token":       result.Token,
		"super_admin": result.IsSuperAdmin,
	})
}

// VerifyOTP completes the OTP flow and returns the session token.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	env := environmentOrDefault(req.Environment)
	result, err := h.deps.Auth.VerifyOTP(c.UserContext(), req.Phone, req.OTP, env)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":      "authenticated",
		"token":       result.Token,
		"user":        result.Session.Identity,
		"super_admin": result.IsSuperAdmin,
	})
}

// Logout revokes the caller's session. Succeeds even when the token is
// already dead.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Get(auth.SessionTokenHeader)
	if err := h.deps.Auth.Logout(c.UserContext(), token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "logged_out"})
}

// Me shows the authenticated identity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":        rc.Identity,
		"environment": string(rc.Environment),
		"role":        rc.Scope.Role().String(),
		"super_admin": rc.SuperAdmin,
	})
}

// Access shows role and table access per company.
func (h *AuthHandler) Access(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, c.Query("company"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"role":           rc.Scope.Role().String(),
		"super_admin":    rc.SuperAdmin,
		"memberships":    rc.Scope.Memberships,
		"allowed_tables": h.deps.Query.ListTables(rc),
	})
}

// Companies lists every membership.
func (h *AuthHandler) Companies(c *fiber.Ctx) error {
	rc, err := buildContext(c, h.deps, "all")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"companies": rc.Scope.Memberships})
}

func environmentOrDefault(env string) domain.Environment {
	if env == "" {
		return domain.EnvProd
	}
	return domain.Environment(env)
}

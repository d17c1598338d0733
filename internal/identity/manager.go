package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/session"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Manager coordinates OTP login, session issuance and resolution.
// All session mutations go through the store: nothing survives a process
// restart in memory.
type Manager struct {
	provider        Provider
	store           session.Store
	tokens          *TokenManager
	superAdminPhone string
	logger          *zap.Logger
}

// NewManager builds the manager.
func NewManager(provider Provider, store session.Store, tokens *TokenManager, superAdminPhone string, logger *zap.Logger) *Manager {
	return &Manager{
		provider:        provider,
		store:           store,
		tokens:          tokens,
		superAdminPhone: superAdminPhone,
		logger:          logger,
	}
}

// LoginResult is returned by InitiateLogin and VerifyLogin.
type LoginResult struct {
	Token        string
	Session      *domain.Session
	OTPPending   bool
	IsSuperAdmin bool
}

// IsSuperAdminPhone reports whether the phone matches the configured
// super-admin override.
func (m *Manager) IsSuperAdminPhone(phone string) bool {
	return m.superAdminPhone != "" && domain.SamePhone(phone, m.superAdminPhone)
}

// InitiateLogin triggers OTP dispatch for the phone number. The configured
// super-admin phone skips the OTP exchange and receives a session directly.
func (m *Manager) InitiateLogin(ctx context.Context, phone string, env domain.Environment) (*LoginResult, error) {
	formatted, err := FormatPhone(phone)
	if err != nil {
		return nil, err
	}
	if !domain.ValidEnvironment(env) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid environment %q", env), nil)
	}

	if m.IsSuperAdminPhone(formatted) {
		sess, token, err := m.createSession(ctx, domain.Identity{Phone: formatted, Name: "Super Admin"}, env, "", true)
		if err != nil {
			return nil, err
		}
		m.logger.Info("super admin login", zap.String("environment", string(env)))
		return &LoginResult{Token: token, Session: sess, IsSuperAdmin: true}, nil
	}

	if err := m.provider.SendOTP(ctx, formatted, env); err != nil {
		return nil, err
	}
	return &LoginResult{OTPPending: true}, nil
}

// VerifyLogin exchanges the OTP for an upstream token and creates a session.
func (m *Manager) VerifyLogin(ctx context.Context, phone, otp string, env domain.Environment) (*LoginResult, error) {
	formatted, err := FormatPhone(phone)
	if err != nil {
		return nil, err
	}
	if !domain.ValidEnvironment(env) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid environment %q", env), nil)
	}

	verified, err := m.provider.VerifyOTP(ctx, formatted, otp, env)
	if err != nil {
		return nil, err
	}

	identity := domain.Identity{
		UserID: verified.UserID,
		Phone:  formatted,
		Name:   verified.UserName,
	}
	sess, token, err := m.createSession(ctx, identity, env, verified.UpstreamToken, m.IsSuperAdminPhone(formatted))
	if err != nil {
		return nil, err
	}

	m.logger.Info("login verified",
		zap.Int64("user_id", identity.UserID),
		zap.String("environment", string(env)))
	return &LoginResult{Token: token, Session: sess, IsSuperAdmin: sess.IsSuperAdmin}, nil
}

// ResolveSession returns the session referenced by a caller token, or
// NotAuthenticated when the token is missing, malformed, expired or the
// session was revoked.
func (m *Manager) ResolveSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, apperrors.NewNotAuthenticated("missing session token")
	}
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewNotAuthenticated("invalid or expired session token")
	}

	sess, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, apperrors.NewBackendError(err)
	}
	if sess == nil {
		return nil, apperrors.NewNotAuthenticated("session expired or revoked")
	}
	return sess, nil
}

// SessionByID loads a live session from the store, or NotAuthenticated
// when it has expired or been revoked.
func (m *Manager) SessionByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewBackendError(err)
	}
	if sess == nil {
		return nil, apperrors.NewNotAuthenticated("session expired or revoked")
	}
	return sess, nil
}

// RevokeSession deletes a session by id. Revoking twice is not an error.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// Logout deletes the session. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		// Unparseable tokens reference no live session; nothing to revoke.
		return nil
	}
	return m.store.Delete(ctx, claims.SessionID)
}

func (m *Manager) createSession(ctx context.Context, identity domain.Identity, env domain.Environment, upstreamToken string, superAdmin bool) (*domain.Session, string, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:            "sess_" + uuid.NewString(),
		Identity:      identity,
		Environment:   env,
		UpstreamToken: upstreamToken,
		IsSuperAdmin:  superAdmin,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.tokens.TTL()),
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, "", apperrors.NewBackendError(err)
	}

	token, err := m.tokens.GenerateToken(sess.ID, env, sess.ExpiresAt)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	return sess, token, nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/identity"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/scope"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// AuthService drives the login flow and turns sessions into request
// contexts.
type AuthService struct {
	manager    *identity.Manager
	resolver   *scope.Resolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(manager *identity.Manager, resolver *scope.Resolver, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	return &AuthService{
		manager:    manager,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Login starts the OTP flow for a phone number. Super-admin phones skip
// the OTP round-trip and get a session immediately.
func (s *AuthService) Login(ctx context.Context, phone string, env domain.Environment) (*identity.LoginResult, error) {
	if !domain.ValidEnvironment(env) {
		return nil, apperrors.NewValidationError("environment must be prod or staging", nil)
	}

	result, err := s.manager.InitiateLogin(ctx, phone, env)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventLoginInitiated,
		Environment: env,
		Actor:       events.Actor{Phone: phone},
	})
	return result, nil
}

// VerifyOTP completes the login flow and mints a session token.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, otp string, env domain.Environment) (*identity.LoginResult, error) {
	if !domain.ValidEnvironment(env) {
		return nil, apperrors.NewValidationError("environment must be prod or staging", nil)
	}

	result, err := s.manager.VerifyLogin(ctx, phone, otp, env)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventLoginVerified,
		Environment: env,
		Actor: events.Actor{
			UserID: result.Session.Identity.UserID,
			Phone:  result.Session.Identity.Phone,
			Name:   result.Session.Identity.Name,
		},
	})
	return result, nil
}

// Resolve maps a session token to its live session.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	return s.manager.ResolveSession(ctx, token)
}

// Session loads a live session by id; used by tools that carry a bound
// session rather than a raw token.
func (s *AuthService) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.manager.SessionByID(ctx, sessionID)
}

// LogoutSession revokes the caller's bound session. Idempotent.
func (s *AuthService) LogoutSession(ctx context.Context, rc *reqctx.RequestContext) error {
	if err := s.manager.RevokeSession(ctx, rc.SessionID); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:        events.EventLogout,
		Environment: rc.Environment,
		Actor: events.Actor{
			UserID: rc.Identity.UserID,
			Phone:  rc.Identity.Phone,
			Name:   rc.Identity.Name,
		},
	})
	return nil
}

// Logout revokes the session behind a token. Revoking an already-dead
// session succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	sess, _ := s.manager.ResolveSession(ctx, token)

	if err := s.manager.Logout(ctx, token); err != nil {
		return err
	}

	event := events.Event{Type: events.EventLogout}
	if sess != nil {
		event.Environment = sess.Environment
		event.Actor = events.Actor{
			UserID: sess.Identity.UserID,
			Phone:  sess.Identity.Phone,
			Name:   sess.Identity.Name,
		}
	}
	s.publish(ctx, event)
	return nil
}

// BuildContext resolves the session's scope for one request and packages
// it as an immutable request context. Scope is recomputed every time; a
// role change upstream takes effect on the caller's next call.
func (s *AuthService) BuildContext(ctx context.Context, sess *domain.Session, requestedCompany string) (*reqctx.RequestContext, error) {
	accessScope, err := s.resolver.ResolveScope(ctx, sess, requestedCompany)
	if err != nil {
		return nil, err
	}
	return &reqctx.RequestContext{
		SessionID:   sess.ID,
		Identity:    sess.Identity,
		Environment: sess.Environment,
		Scope:       accessScope,
		SuperAdmin:  sess.IsSuperAdmin,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Gateway executes validated read statements against one backend transport.
// Both implementations receive statements that already carry their RBAC
// predicate; the gateway never widens or narrows scope.
type Gateway interface {
	Execute(ctx context.Context, stmt string, params []any) ([]map[string]any, error)
	Ping(ctx context.Context) error
}

// Selector maps environments to gateways, chosen at startup by backend mode.
type Selector struct {
	gateways map[domain.Environment]Gateway
}

// NewSelector builds a selector over the given per-environment gateways.
func NewSelector(gateways map[domain.Environment]Gateway) *Selector {
	return &Selector{gateways: gateways}
}

// Gateway returns the gateway for env.
func (s *Selector) Gateway(env domain.Environment) (Gateway, error) {
	gw, ok := s.gateways[env]
	if !ok || gw == nil {
		return nil, apperrors.NewBackendError(fmt.Errorf("no backend configured for environment %q", env))
	}
	return gw, nil
}

// Ping checks every configured gateway and returns the first failure.
func (s *Selector) Ping(ctx context.Context) error {
	for env, gw := range s.gateways {
		if err := gw.Ping(ctx); err != nil {
			return fmt.Errorf("backend %s: %w", env, err)
		}
	}
	return nil
}

// retry runs fn up to attempts times with doubling delay, retrying only
// when fn reports the failure as transient. The context is checked between
// attempts so a cleared unit of work never triggers another call.
func retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() (transient bool, err error)) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := baseDelay

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		transient, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !transient {
			return err
		}
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return lastErr
}

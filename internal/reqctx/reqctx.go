package reqctx

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// RequestContext carries the resolved caller for the duration of one tool
// call. Values are set once when the call is dispatched and never mutated;
// concurrent calls each see their own copy.
type RequestContext struct {
	SessionID   string
	Identity    domain.Identity
	Environment domain.Environment
	Scope       domain.AccessScope
	SuperAdmin  bool
}

type ctxKey struct{}

// With returns a child context carrying rc.
func With(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From extracts the request context bound to ctx. Callers that reach a
// data-access path without one get CONTEXT_MISSING, never a wider scope.
func From(ctx context.Context) (*RequestContext, error) {
	rc, ok := ctx.Value(ctxKey{}).(*RequestContext)
	if !ok || rc == nil {
		return nil, util.NewContextMissing()
	}
	return rc, nil
}

// Registry maps dispatch unit ids (MCP client session ids, HTTP request
// ids) to their request contexts in multi-user mode. Bindings are
// explicit: an id with no binding resolves to nothing, not to a default.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*RequestContext
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*RequestContext)}
}

// Bind associates id with rc, replacing any previous binding.
func (r *Registry) Bind(id string, rc *RequestContext) {
	r.mu.Lock()
	r.bindings[id] = rc
	r.mu.Unlock()
}

// Clear removes the binding for id. Clearing an unbound id is a no-op.
func (r *Registry) Clear(id string) {
	r.mu.Lock()
	delete(r.bindings, id)
	r.mu.Unlock()
}

// Lookup returns the context bound to id.
func (r *Registry) Lookup(id string) (*RequestContext, error) {
	r.mu.RLock()
	rc := r.bindings[id]
	r.mu.RUnlock()
	if rc == nil {
		return nil, util.NewContextMissing()
	}
	return rc, nil
}

// Scoped binds id for the duration of fn and always clears it afterwards,
// including when fn panics, so a crashed call cannot leak its identity to
// the next caller reusing the same dispatch unit.
func (r *Registry) Scoped(ctx context.Context, id string, rc *RequestContext, fn func(context.Context) error) error {
	r.Bind(id, rc)
	defer r.Clear(id)
	return fn(With(ctx, rc))
}

// Slot holds the single active session in stdio mode, where one client
// owns the whole process.
type Slot struct {
	current atomic.Pointer[RequestContext]
}

func NewSlot() *Slot {
	return &Slot{}
}

// Set replaces the active context. A nil rc clears the slot.
func (s *Slot) Set(rc *RequestContext) {
	s.current.Store(rc)
}

func (s *Slot) Clear() {
	s.current.Store(nil)
}

// Get returns the active context. An empty slot means the single client
// has not logged in yet, or logged out, so the caller is simply not
// authenticated. CONTEXT_MISSING stays reserved for the multi-session
// registry, where a bound context can genuinely be absent for one client
// while others are logged in.
func (s *Slot) Get() (*RequestContext, error) {
	rc := s.current.Load()
	if rc == nil {
		return nil, util.NewNotAuthenticated("no active session, call hr_login first")
	}
	return rc, nil
}

package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/config"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/observability"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/service"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Server exposes the HR tool surface over MCP. In stdio mode one client
// owns the process and the active session lives in a single slot; in
// multi-user mode each MCP client session binds its own context through
// the registry.
type Server struct {
	cfg       *config.Config
	auth      *service.AuthService
	queries   *service.QueryService
	hr        *service.HRService
	slot      *reqctx.Slot
	registry  *reqctx.Registry
	metrics   *observability.Metrics
	logger    *zap.Logger
	multiUser bool

	mcpServer *mcpserver.MCPServer
}

// NewServer wires the tool surface.
func NewServer(cfg *config.Config, auth *service.AuthService, queries *service.QueryService, hr *service.HRService, metrics *observability.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		auth:      auth,
		queries:   queries,
		hr:        hr,
		slot:      reqctx.NewSlot(),
		registry:  reqctx.NewRegistry(),
		metrics:   metrics,
		logger:    logger,
		multiUser: cfg.App.Transport == config.TransportHTTP,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		cfg.App.Name,
		cfg.App.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	s.registerAuthTools()
	s.registerSQLTools()
	s.registerHRTools()
	if s.multiUser {
		s.registerContextTools()
	}
	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// Registry exposes the context bindings for the HTTP transport, which
// does its own per-request binding.
func (s *Server) Registry() *reqctx.Registry {
	return s.registry
}

// requestContext resolves the caller for one tool invocation. Order:
// a context value bound by the transport, then the registry keyed by the
// MCP client session, then the stdio slot. No binding means the call is
// rejected rather than defaulted.
func (s *Server) requestContext(ctx context.Context) (*reqctx.RequestContext, error) {
	if rc, err := reqctx.From(ctx); err == nil {
		return rc, nil
	}
	if s.multiUser {
		session := mcpserver.ClientSessionFromContext(ctx)
		if session == nil {
			return nil, apperrors.NewContextMissing()
		}
		return s.registry.Lookup(session.SessionID())
	}
	return s.slot.Get()
}

// freshContext revalidates the bound session against the store and
// recomputes its scope. Data tools call this on every invocation: a role
// change or revocation upstream takes effect immediately, never a cached
// scope.
func (s *Server) freshContext(ctx context.Context, company string) (*reqctx.RequestContext, error) {
	rc, err := s.requestContext(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.auth.Session(ctx, rc.SessionID)
	if err != nil {
		s.clearSession(ctx)
		return nil, err
	}
	return s.auth.BuildContext(ctx, sess, company)
}

// bindSession stores the freshly built context where the next call on the
// same dispatch unit will find it.
func (s *Server) bindSession(ctx context.Context, rc *reqctx.RequestContext) {
	if s.multiUser {
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			s.registry.Bind(session.SessionID(), rc)
		}
		return
	}
	s.slot.Set(rc)
}

func (s *Server) clearSession(ctx context.Context) {
	if s.multiUser {
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			s.registry.Clear(session.SessionID())
		}
		return
	}
	s.slot.Clear()
}

func missingParam(name string) error {
	return apperrors.NewValidationError(name+" is required", nil)
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(apperrors.NewInternalError(err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

// errorResult renders a failure as a structured tool error so the caller
// can branch on the code. Transport-level errors are reserved for protocol
// faults.
func errorResult(err error) *mcplib.CallToolResult {
	derr := apperrors.ToDomainError(err)
	payload := map[string]any{
		"error": map[string]any{
			"code":    derr.Code,
			"message": derr.Message,
		},
	}
	if len(derr.Details) > 0 {
		payload["error"].(map[string]any)["details"] = derr.Details
	}
	data, _ := json.Marshal(payload)
	return &mcplib.CallToolResult{
		IsError: true,
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

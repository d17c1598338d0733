package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// Context binding tools exist only in multi-user mode, where a trusted
// front-end authenticates users out of band and attaches their session
// token to the MCP client session before issuing tool calls on their
// behalf.
func (s *Server) registerContextTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("set_request_context",
			mcplib.WithDescription("Bind an existing session token to this client session. Subsequent tool calls run as that user."),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("token",
				mcplib.Description("A session token obtained from verify_otp"),
				mcplib.Required(),
			),
		),
		s.handleSetRequestContext,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("clear_request_context",
			mcplib.WithDescription("Remove the session binding from this client session. The session itself stays valid."),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleClearRequestContext,
	)
}

func (s *Server) handleSetRequestContext(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("set_request_context")

	token := request.GetString("token", "")
	if token == "" {
		return errorResult(missingParam("token")), nil
	}

	sess, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return errorResult(err), nil
	}
	rc, err := s.auth.BuildContext(ctx, sess, "")
	if err != nil {
		return errorResult(err), nil
	}
	s.bindSession(ctx, rc)

	return jsonResult(map[string]any{
		"status":      "bound",
		"user":        rc.Identity,
		"environment": string(rc.Environment),
	}), nil
}

func (s *Server) handleClearRequestContext(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("clear_request_context")

	s.clearSession(ctx)
	return jsonResult(map[string]any{"status": "cleared"}), nil
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// WebhookGateway relays statements through an external workflow webhook
// that fronts the database. The webhook accepts {query, params} and
// responds {success, data|error}.
type WebhookGateway struct {
	url           string
	client        *http.Client
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// WebhookOptions parameterizes the relay.
type WebhookOptions struct {
	URL            string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// NewWebhookGateway builds a webhook-relayed gateway.
func NewWebhookGateway(opts WebhookOptions, logger *zap.Logger) *WebhookGateway {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.RetryBaseDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &WebhookGateway{
		url:           opts.URL,
		client:        &http.Client{Timeout: timeout},
		retryAttempts: attempts,
		retryDelay:    delay,
		logger:        logger,
	}
}

type webhookResponse struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data"`
	Error   string           `json:"error"`
}

// Execute posts the statement to the webhook. Network errors and 5xx
// responses are retried with bounded attempts and backoff; a query-level
// error from the webhook is final.
func (g *WebhookGateway) Execute(ctx context.Context, stmt string, params []any) ([]map[string]any, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(map[string]any{"query": stmt, "params": params})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var rows []map[string]any
	err = retry(ctx, g.retryAttempts, g.retryDelay, func() (bool, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
		if reqErr != nil {
			return false, apperrors.NewInternalError(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := g.client.Do(req)
		if doErr != nil {
			g.logger.Warn("webhook request failed", zap.Error(doErr))
			return true, apperrors.NewUpstreamUnavailable(doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			g.logger.Warn("webhook returned server error", zap.Int("status", resp.StatusCode))
			return true, apperrors.NewUpstreamUnavailable(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return false, apperrors.NewBackendError(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}

		var out webhookResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&out); decErr != nil {
			return false, apperrors.NewBackendError(fmt.Errorf("decode webhook response: %w", decErr))
		}
		if !out.Success {
			return false, apperrors.NewBackendError(fmt.Errorf("query failed: %s", out.Error))
		}
		rows = out.Data
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// Ping issues a minimal statement to verify the relay is reachable.
func (g *WebhookGateway) Ping(ctx context.Context) error {
	_, err := g.Execute(ctx, "SELECT 1", nil)
	return err
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

func newTestGateway(url string) *WebhookGateway {
	return NewWebhookGateway(WebhookOptions{
		URL:            url,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zap.NewNop())
}

func TestWebhookExecuteSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": 1, "name": "Asha"}},
		})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	rows, err := gw.Execute(context.Background(), "SELECT id, name FROM company_employee WHERE id = $1", []any{int64(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0]["name"])
	assert.Equal(t, "SELECT id, name FROM company_employee WHERE id = $1", gotBody["query"])
}

func TestWebhookExecuteEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	rows, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []map[string]any{{"n": 1}}})
	}))
	defer srv.Close()

	rows, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavail, apperrors.CodeOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBackendError, apperrors.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookQueryErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "relation does not exist"})
	}))
	defer srv.Close()

	_, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT * FROM nope", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBackendError, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "relation does not exist")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestGateway(srv.URL).Execute(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavail, apperrors.CodeOf(err))
}

func TestWebhookPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SELECT 1", body["query"])
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	assert.NoError(t, newTestGateway(srv.URL).Ping(context.Background()))
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/config"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// VerifiedUser is the identity provider's response to a successful OTP
// exchange.
type VerifiedUser struct {
	UserID        int64
	UserName      string
	UpstreamToken string
}

// Provider abstracts the external OTP identity service.
type Provider interface {
	SendOTP(ctx context.Context, phone string, env domain.Environment) error
	VerifyOTP(ctx context.Context, phone, otp string, env domain.Environment) (*VerifiedUser, error)
}

// HTTPProvider talks to the per-environment identity API.
type HTTPProvider struct {
	cfg    config.IdentityConfig
	client *http.Client
}

// NewHTTPProvider constructs a provider from configuration.
func NewHTTPProvider(cfg config.IdentityConfig) *HTTPProvider {
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

func (p *HTTPProvider) baseURL(env domain.Environment) string {
	if env == domain.EnvStaging {
		return p.cfg.APIBaseStaging
	}
	return p.cfg.APIBaseProd
}

type otpSendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type otpVerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		UserID   int64  `json:"user_id"`
		UserName string `json:"user_name"`
		Token    string `json:"token"`
	} `json:"data"`
}

// SendOTP triggers OTP dispatch to the phone number.
func (p *HTTPProvider) SendOTP(ctx context.Context, phone string, env domain.Environment) error {
	var out otpSendResponse
	if err := p.post(ctx, env, "/api/v2/user-otp-send", map[string]any{"phone_no": phone}, &out); err != nil {
		return err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "otp dispatch rejected"
		}
		return apperrors.NewUpstreamRejected(msg)
	}
	return nil
}

// VerifyOTP exchanges the OTP for the upstream auth token and user record.
func (p *HTTPProvider) VerifyOTP(ctx context.Context, phone, otp string, env domain.Environment) (*VerifiedUser, error) {
	payload := map[string]any{"phone_no": phone, "otp": strings.TrimSpace(otp)}

	var out otpVerifyResponse
	if err := p.post(ctx, env, "/api/v2/user-verify-otp", payload, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := strings.ToLower(out.Message)
		switch {
		case strings.Contains(msg, "expired"):
			return nil, apperrors.NewOTPExpired()
		case strings.Contains(msg, "otp"):
			return nil, apperrors.NewInvalidOTP(out.Message)
		}
		return nil, apperrors.NewUpstreamRejected(out.Message)
	}
	return &VerifiedUser{
		UserID:        out.Data.UserID,
		UserName:      out.Data.UserName,
		UpstreamToken: out.Data.Token,
	}, nil
}

func (p *HTTPProvider) post(ctx context.Context, env domain.Environment, endpoint string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL(env)+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("device_id", p.cfg.DeviceID)
	req.Header.Set("device_type", p.cfg.DeviceType)

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.NewUpstreamUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.NewUpstreamUnavailable(fmt.Errorf("identity api returned %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUpstreamUnavailable(fmt.Errorf("decode identity response: %w", err))
	}
	return nil
}

// FormatPhone cleans a phone number into international format. Ten-digit
// numbers get the +91 country code; longer numbers must carry their own.
func FormatPhone(phone string) (string, error) {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))

	if phone == "" {
		return "", apperrors.NewInvalidPhone("phone number required")
	}
	for _, r := range strings.TrimPrefix(phone, "+") {
		if r < '0' || r > '9' {
			return "", apperrors.NewInvalidPhone("phone number must contain digits only")
		}
	}

	switch {
	case strings.HasPrefix(phone, "+"):
		return phone, nil
	case len(phone) == 12 && strings.HasPrefix(phone, "91"):
		return "+" + phone, nil
	case len(phone) == 10:
		return "+91" + phone, nil
	}
	return "", apperrors.NewInvalidPhone("provide 10 digits or a full number with country code")
}

package domain

import "time"

// Environment tags which backend a session talks to.
type Environment string

const (
	EnvProd    Environment = "prod"
	EnvStaging Environment = "staging"
)

// ValidEnvironment reports whether env names a known environment.
func ValidEnvironment(env Environment) bool {
	return env == EnvProd || env == EnvStaging
}

// Session is an authenticated login persisted in the session store.
// The ID is the store key; the caller-facing token is a signed wrapper
// around it (see identity.TokenManager).
type Session struct {
	ID            string      `json:"session_id"`
	Identity      Identity    `json:"identity"`
	Environment   Environment `json:"environment"`
	UpstreamToken string      `json:"upstream_token,omitempty"`
	IsSuperAdmin  bool        `json:"is_super_admin"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// Expired reports whether the session lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

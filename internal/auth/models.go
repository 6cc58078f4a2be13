// auth/models.go
package auth

import (
	"context"
	"errors"
	"time"
)

// SafetyMargin is subtracted from a token's expiry when deciding whether it
// is still usable, covering clock skew and in-flight request latency.
const SafetyMargin = 60 * time.Second

// StateTTL bounds how long a pending authorization state remains valid.
const StateTTL = 10 * time.Minute

var (
	// ErrNoToken means the realm has never connected or was disconnected.
	ErrNoToken = errors.New("no token stored for realm")

	// ErrInvalidState means the returned OAuth state did not match a pending
	// authorization, or was already consumed. The flow must be restarted.
	ErrInvalidState = errors.New("authorization state is invalid or already used")

	// ErrReauthorizeRequired means the access token is expired and no
	// refresh token remains; only a new authorization flow can recover.
	ErrReauthorizeRequired = errors.New("refresh token missing and access token expired: reauthorization required")
)

// OAuthToken represents the QuickBooks credential for one realm.
type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	RealmID      string    `json:"realm_id"`
}

// Valid reports whether the token is usable at the given instant, keeping
// the safety margin clear of the wire expiry.
func (t *OAuthToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-SafetyMargin))
}

// TokenStore persists one token per realm.
type TokenStore interface {
	SaveToken(ctx context.Context, realmID string, token *OAuthToken) error
	GetToken(ctx context.Context, realmID string) (*OAuthToken, error)
	DeleteToken(ctx context.Context, realmID string) error
}

// StateStore tracks pending authorization states. Consume removes the state
// regardless of how the surrounding flow ends, so a state can never be
// replayed.
type StateStore interface {
	PutState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) error
}

// OAuthConfig holds OAuth 2.0 configuration for the QuickBooks connection.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
}

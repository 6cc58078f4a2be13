// auth/service.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Service handles the OAuth 2.0 token lifecycle: authorization, exchange,
// expiry tracking, and refresh. Refresh is coalesced per realm so two
// overlapping callers share one in-flight token exchange and cannot
// invalidate each other's refresh token.
type Service struct {
	config     OAuthConfig
	tokenStore TokenStore
	stateStore StateStore
	httpClient *http.Client
	log        *logrus.Logger

	refreshGroup singleflight.Group
	now          func() time.Time
}

// NewService creates a new auth service.
func NewService(config OAuthConfig, tokenStore TokenStore, stateStore StateStore, log *logrus.Logger) *Service {
	return &Service{
		config:     config,
		tokenStore: tokenStore,
		stateStore: stateStore,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// StartAuthorization generates an unpredictable state value, persists it
// with a short TTL, and returns the QuickBooks authorization URL to
// redirect the user to.
func (s *Service) StartAuthorization(ctx context.Context) (authURL, state string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	state = base64.URLEncoding.EncodeToString(b)

	if err := s.stateStore.PutState(ctx, state, StateTTL); err != nil {
		return "", "", fmt.Errorf("failed to persist state: %w", err)
	}

	u, err := url.Parse(s.config.AuthURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid authorization URL: %w", err)
	}
	q := u.Query()
	q.Set("client_id", s.config.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(s.config.Scopes, " "))
	q.Set("redirect_uri", s.config.RedirectURI)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), state, nil
}

// CompleteAuthorization validates the returned state (one-time use: the
// state is consumed before the outcome is known, blocking replay), then
// exchanges the authorization code for a token pair and persists it under
// the realm the provider reported.
func (s *Service) CompleteAuthorization(ctx context.Context, state, code, realmID string) (*OAuthToken, error) {
	if err := s.stateStore.ConsumeState(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.config.RedirectURI)

	token, err := s.executeTokenRequest(ctx, data)
	if err != nil {
		return nil, err
	}

	token.RealmID = realmID
	if token.RealmID == "" {
		return nil, fmt.Errorf("authorization callback did not include a realm id")
	}

	if err := s.tokenStore.SaveToken(ctx, token.RealmID, token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	s.log.WithField("realm_id", token.RealmID).Info("QuickBooks connection established")
	return token, nil
}

// GetValidToken returns the realm's token, refreshing it first when it is
// inside the safety margin of its expiry.
func (s *Service) GetValidToken(ctx context.Context, realmID string) (*OAuthToken, error) {
	token, err := s.tokenStore.GetToken(ctx, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if token.Valid(s.now()) {
		return token, nil
	}

	// Coalesce concurrent refreshes on the realm: the provider may rotate
	// the refresh token, so two racing exchanges can invalidate each other.
	v, err, _ := s.refreshGroup.Do(realmID, func() (interface{}, error) {
		// Another caller may have refreshed while this one waited.
		current, err := s.tokenStore.GetToken(ctx, realmID)
		if err == nil && current.Valid(s.now()) {
			return current, nil
		}
		return s.refresh(ctx, realmID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*OAuthToken), nil
}

// Token implements qbclient.TokenSource.
func (s *Service) Token(ctx context.Context, realmID string) (string, error) {
	token, err := s.GetValidToken(ctx, realmID)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// refresh exchanges the stored refresh token for a new pair. The existing
// token is left in place on failure so callers may retry.
func (s *Service) refresh(ctx context.Context, realmID string) (*OAuthToken, error) {
	token, err := s.tokenStore.GetToken(ctx, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token for refresh: %w", err)
	}

	if token.RefreshToken == "" {
		return nil, ErrReauthorizeRequired
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", token.RefreshToken)

	newToken, err := s.executeTokenRequest(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	newToken.RealmID = token.RealmID

	// The provider does not rotate the refresh token on every exchange.
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = token.RefreshToken
	}

	if err := s.tokenStore.SaveToken(ctx, realmID, newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"realm_id":   realmID,
		"expires_at": newToken.ExpiresAt,
	}).Debug("access token refreshed")

	return newToken, nil
}

// executeTokenRequest performs the actual token request to QuickBooks.
func (s *Service) executeTokenRequest(ctx context.Context, data url.Values) (*OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, body)
	}

	var token OAuthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	token.IssuedAt = s.now()
	token.ExpiresAt = token.IssuedAt.Add(time.Duration(token.ExpiresIn) * time.Second)

	return &token, nil
}

// Disconnect revokes both tokens and removes the stored credential.
func (s *Service) Disconnect(ctx context.Context, realmID string) error {
	token, err := s.tokenStore.GetToken(ctx, realmID)
	if err != nil {
		return fmt.Errorf("failed to get token for revocation: %w", err)
	}

	if err := s.revokeToken(ctx, token.AccessToken); err != nil {
		return err
	}
	if err := s.revokeToken(ctx, token.RefreshToken); err != nil {
		return err
	}

	return s.tokenStore.DeleteToken(ctx, realmID)
}

// revokeToken revokes a single token with QuickBooks.
func (s *Service) revokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.RevokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("revoke request failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
}

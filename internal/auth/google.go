package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"evently/internal/config"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	// oauth2ExchangeTimeout bounds the code exchange and userinfo round trips.
	oauth2ExchangeTimeout = 10 * time.Second
	oauthStateLength      = 32
)

// ErrIdentityRejected is returned when the provider's assertion is unusable.
var ErrIdentityRejected = errors.New("identity provider assertion rejected")

// ExternalIdentity is a verified assertion received from an identity provider.
type ExternalIdentity struct {
	Email       string
	DisplayName string
}

// IdentityProvider performs delegated authentication.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// GoogleProvider implements IdentityProvider with Google's OAuth2 endpoints.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider builds a provider from configuration. It returns nil when
// Google sign-in is not configured.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	if cfg.ClientID == "" {
		return nil
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, oauth2ExchangeTimeout)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	return parseGoogleUserInfo(body)
}

func parseGoogleUserInfo(data []byte) (*ExternalIdentity, error) {
	extracted := struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}{}
	if err := json.Unmarshal(data, &extracted); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if extracted.Email == "" || !extracted.EmailVerified {
		return nil, ErrIdentityRejected
	}
	return &ExternalIdentity{
		Email:       extracted.Email,
		DisplayName: extracted.Name,
	}, nil
}

// NewOAuthState returns a random URL-safe state value for CSRF protection.
func NewOAuthState() (string, error) {
	buf := make([]byte, oauthStateLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sheshasaibaba/taxbynav-backend/internal/config"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	exchangeTimeout          = 30 * time.Second
	maxProviderResponseBytes = 1 << 20
)

// Identity is a provider-verified email (plus display name when the
// provider supplies one).
type Identity struct {
	Email string
	Name  string
}

// IdentityExchanger turns an authorization code into a verified identity.
// The service depends on this interface so the handshake is testable
// without a live provider.
type IdentityExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type GoogleClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	userinfoURL  string
	httpClient   HTTPDoer
}

func NewGoogleClient(cfg config.GoogleConfig) (*GoogleClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("google oauth requires client id, client secret and redirect uri")
	}

	return &GoogleClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		tokenURL:     googleTokenURL,
		userinfoURL:  googleUserinfoURL,
		httpClient:   &http.Client{Timeout: exchangeTimeout},
	}, nil
}

func (c *GoogleClient) AuthURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return googleAuthURL + "?" + params.Encode()
}

func (c *GoogleClient) Exchange(ctx context.Context, code string) (Identity, error) {
	accessToken, err := c.exchangeCode(ctx, code)
	if err != nil {
		return Identity{}, err
	}
	return c.fetchUserinfo(ctx, accessToken)
}

func (c *GoogleClient) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %s", ErrGoogleAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrGoogleAuth, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in provider response", ErrGoogleAuth)
	}

	return payload.AccessToken, nil
}

func (c *GoogleClient) fetchUserinfo(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: userinfo: %s", ErrGoogleAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return Identity{}, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: userinfo endpoint returned %d", ErrGoogleAuth, resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed userinfo response", ErrGoogleAuth)
	}
	if info.Email == "" {
		return Identity{}, fmt.Errorf("%w: provider account has no email", ErrGoogleAuth)
	}

	return Identity{Email: info.Email, Name: info.Name}, nil
}

var ErrGoogleAuth = errors.New("google authentication failed")

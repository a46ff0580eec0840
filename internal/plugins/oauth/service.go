package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/config"
)

// OAuthService wraps the Google OAuth2 client registration.
type OAuthService interface {
	// AuthURL returns a consent URL and the state value embedded in it.
	AuthURL(ctx context.Context) (url, state string, err error)

	// Exchange redeems an authorization code and looks up the account.
	// A non-empty state must have been issued by AuthURL and unused.
	Exchange(ctx context.Context, code, state string) (*TokenSet, *UserInfo, error)

	// Refresh obtains a new access token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)

	// UserInfo looks up the account owning accessToken.
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

// oauthService implements OAuthService.
type oauthService struct {
	cfg    *oauth2.Config
	states StateStore

	// userInfoEndpoint overrides the Google API base URL. Empty in production.
	userInfoEndpoint string
}

// NewOAuthService creates a new OAuth service for the Google registration
// in cfg.
func NewOAuthService(cfg config.OAuthConfig, states StateStore) OAuthService {
	return &oauthService{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		states: states,
	}
}

func (s *oauthService) configured() error {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return apperror.NewServiceUnavailable("Google OAuth is not configured")
	}
	return nil
}

// AuthURL requests offline access with a forced consent prompt so Google
// returns a refresh token every time.
func (s *oauthService) AuthURL(ctx context.Context) (string, string, error) {
	if err := s.configured(); err != nil {
		return "", "", err
	}

	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", "", apperror.NewInternal(err)
	}

	url := s.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return url, state, nil
}

func (s *oauthService) Exchange(ctx context.Context, code, state string) (*TokenSet, *UserInfo, error) {
	if err := s.configured(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, nil, apperror.NewBadRequest("Authorization code is required")
	}

	if state != "" {
		ok, err := s.states.Consume(ctx, state)
		if err != nil {
			return nil, nil, apperror.NewInternal(err)
		}
		if !ok {
			return nil, nil, apperror.NewBadRequest("Invalid or expired OAuth state")
		}
	}

	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, nil, apperror.NewBadGateway("OAuth authentication failed", fmt.Errorf("exchanging code: %w", err))
	}

	info, err := s.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("oauth code exchanged", slog.String("email", info.Email))
	return newTokenSet(tok), info, nil
}

func (s *oauthService) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperror.NewBadRequest("Refresh token is required")
	}

	tok, err := s.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, apperror.NewBadGateway("Failed to refresh token", fmt.Errorf("refreshing token: %w", err))
	}

	ts := newTokenSet(tok)
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}
	return ts, nil
}

func (s *oauthService) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, apperror.NewBadRequest("Access token is required")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.userInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.userInfoEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating userinfo client: %w", err))
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, apperror.NewBadGateway("Failed to get user info", err)
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}
	return &UserInfo{Email: info.Email, Name: name}, nil
}

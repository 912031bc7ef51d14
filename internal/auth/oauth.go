package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Provider is an OAuth2 identity provider.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

// Google returns the Google provider for the given client.
func Google(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Providers lists the configured provider names.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// OAuthURL returns the consent page URL for provider.
func (s *Service) OAuthURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// OAuthSignIn exchanges an authorization code, creating the account on
// first sign-in. The provider must report the email as verified, since an
// existing account with that email is signed in.
func (s *Service) OAuthSignIn(ctx context.Context, provider, code string) (*Credentials, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	info, err := fetchUserInfo(ctx, p.Config.Client(ctx, token), p.UserInfoURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, fmt.Errorf("%s returned no email", provider)
	}
	if !info.EmailVerified {
		return nil, ErrEmailUnverified
	}

	user, err := s.users.FindByEmail(ctx, info.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &model.User{Email: info.Email, FullName: info.Name, AvatarURL: info.Picture}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		s.seedCategories(ctx, user)
		s.logger.Info("user signed up", zap.String("user", user.ID), zap.String("provider", provider))
	case err != nil:
		return nil, err
	}
	return s.issue(ctx, user)
}

func fetchUserInfo(ctx context.Context, client *http.Client, url string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}

package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const (
	googleIssuer    = "https://accounts.google.com"
	facebookMeURL   = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"
	providerFailure = "identity provider request failed"
)

var ErrUnknownProvider = errors.New("unknown identity provider")

// IdentityProvider runs the authorization-code flow against one third-party provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (*ExternalIdentity, error)
}

// GoogleProvider signs users in with Google's OpenID Connect endpoint and trusts the verified id_token claims.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("could not discover google oidc provider: %w", err)
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GoogleProvider) Identify(ctx context.Context, code string) (*ExternalIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerFailure, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in google token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("could not verify google id_token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}

	return &ExternalIdentity{
		Provider: ProviderGoogle,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Avatar:   claims.Picture,
	}, nil
}

// FacebookProvider uses plain OAuth2 and reads the profile from the Graph API.
type FacebookProvider struct {
	config *oauth2.Config
	meURL  string
}

func NewFacebookProvider(appID, appSecret, redirectURL string) *FacebookProvider {
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     appID,
			ClientSecret: appSecret,
			RedirectURL:  redirectURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		meURL: facebookMeURL,
	}
}

func (p *FacebookProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *FacebookProvider) Identify(ctx context.Context, code string) (*ExternalIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.meURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerFailure, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook profile request returned %s", res.Status)
	}

	var profile struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		return nil, err
	}

	return &ExternalIdentity{
		Provider: ProviderFacebook,
		Subject:  profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
		Avatar:   profile.Picture.Data.URL,
	}, nil
}

// Package oauth is the Google OAuth2 collaborator: it issues consent URLs,
// exchanges authorization codes, refreshes access tokens and looks up the
// signed-in user. Tokens are handed back to the caller and never stored
// server-side; the mail dispatch core only ever sees a bearer token.
package oauth

import (
	"time"

	"golang.org/x/oauth2"
)

// Scopes requested at consent: send and compose mail, read the address.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/userinfo.email",
}

// TokenSet is the token material returned to the caller after a code
// exchange or refresh.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type"`

	// ExpiryDate is the expiry in Unix milliseconds, zero when unknown.
	ExpiryDate int64 `json:"expiry_date,omitempty"`
}

// newTokenSet converts an oauth2 token. Google returns the granted scope
// as an extra field.
func newTokenSet(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		ts.ExpiryDate = tok.Expiry.UnixMilli()
	}
	return ts
}

// UserInfo identifies the Google account behind an access token.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// --- Request/response shapes ---

// AuthURLResponse is returned by GET /api/oauth/auth-url.
type AuthURLResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// CallbackResponse is returned by GET /api/oauth/callback.
type CallbackResponse struct {
	Success  bool      `json:"success"`
	Tokens   *TokenSet `json:"tokens"`
	UserInfo *UserInfo `json:"userInfo"`
}

// RefreshRequest is the body of POST /api/oauth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// RefreshResponse is returned by POST /api/oauth/refresh.
type RefreshResponse struct {
	Success     bool      `json:"success"`
	AccessToken string    `json:"accessToken"`
	Tokens      *TokenSet `json:"tokens"`
}

// TestConnectionRequest is the body of POST /api/oauth/test-connection.
type TestConnectionRequest struct {
	AccessToken string `json:"accessToken" form:"accessToken"`
	Email       string `json:"email" form:"email"`
}

// TestConnectionResponse is returned by POST /api/oauth/test-connection.
type TestConnectionResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	UserInfo *UserInfo `json:"userInfo,omitempty"`
}

// stateKeyPrefix namespaces issued OAuth state values in Redis.
const stateKeyPrefix = "oauth:state:"

// defaultStateTTL applies when no TTL is configured.
const defaultStateTTL = 10 * time.Minute

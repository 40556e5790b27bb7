package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	goauth2 "golang.org/x/oauth2"

	"github.com/jrsteele09/go-calendar-relay/internal/utils"
)

// Token exposes the session's token set to x/oauth2 clients.
func (a Authenticated) Token() *goauth2.Token {
	return &goauth2.Token{
		AccessToken:  a.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
	}
}

// Claims decodes the id token payload without verifying its signature.
// The result is for display only.
func (a Authenticated) Claims() (jwt.MapClaims, error) {
	if a.IDToken == "" {
		return nil, ErrNoIDToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.IDToken, claims); err != nil {
		return nil, fmt.Errorf("parsing id token: %w", err)
	}
	return claims, nil
}

// Account names the signed-in user, or "" when the id token does not say.
func (a Authenticated) Account() string {
	claims, err := a.Claims()
	if err != nil {
		return ""
	}
	return utils.FirstString(claims, "preferred_username", "email", "upn", "sub")
}

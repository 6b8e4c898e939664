package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/viewtube/backend/internal/models"
)

// AccessVerifier resolves an account id from a presented access token.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// PrincipalStore loads the account behind a verified token subject.
type PrincipalStore interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
}

// Guard authenticates inbound requests. It is a pure gate: its only output is
// the resolved principal, with the password hash and refresh token stripped.
type Guard struct {
	Tokens   AccessVerifier
	Accounts PrincipalStore
}

// AccessTokenCookie is the cookie checked before the Authorization header.
const AccessTokenCookie = "accessToken"

// Authenticate extracts the caller's access token (cookie first, then bearer
// header), verifies it, and resolves the owning account.
func (g Guard) Authenticate(r *http.Request) (models.Principal, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return models.Principal{}, ErrMissingCredentials
	}

	accountID, err := g.Tokens.VerifyAccess(token)
	if err != nil {
		return models.Principal{}, ErrInvalidToken
	}

	account, err := g.Accounts.FindByID(r.Context(), accountID)
	if err != nil {
		return models.Principal{}, ErrInvalidToken
	}

	return account.Principal(), nil
}

// TokenFromRequest returns the first credential present: the accessToken
// cookie, else the Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

// principalKey is an unexported type for the principal context key.
type principalKey struct{}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(models.Principal)
	return principal, ok
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/logging"
	"github.com/viewtube/backend/internal/models"
)

// requireAuth gates a handler behind the session guard and stores the
// principal on the request context.
func requireAuth(guard SessionGuard, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if guard == nil {
			logging.FromContext(ctx).Error("session guard unavailable")
			respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
			return
		}

		principal, err := guard.Authenticate(r)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, auth.ErrMissingCredentials) {
				message = "missing credentials"
			}
			logging.FromContext(ctx).Warn("authentication rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, message)
			return
		}

		next(w, r.WithContext(auth.WithPrincipal(ctx, principal)))
	}
}

const refreshTokenCookie = "refreshToken"

// setSessionCookies mirrors the issued tokens into httpOnly cookies.
func setSessionCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, sessionCookie(auth.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

// clearSessionCookies expires both token cookies. Only logout calls this; a
// failed verification leaves cookie state to the client.
func clearSessionCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	access := sessionCookie(auth.AccessTokenCookie, "", expired)
	access.MaxAge = -1
	refresh := sessionCookie(refreshTokenCookie, "", expired)
	refresh.MaxAge = -1
	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}

func sessionCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

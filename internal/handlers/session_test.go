package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/models"
)

type stubGuard struct {
	principal models.Principal
	err       error
}

func (g stubGuard) Authenticate(*http.Request) (models.Principal, error) {
	return g.principal, g.err
}

func TestRequireAuthStoresPrincipal(t *testing.T) {
	guard := stubGuard{principal: models.Principal{ID: testUserID, Username: "alice"}}

	var seen models.Principal
	handler := requireAuth(guard, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		respondData(r.Context(), w, http.StatusOK, nil, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if seen.ID != testUserID {
		t.Fatalf("expected principal on context, got %+v", seen)
	}
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	guard := stubGuard{err: auth.ErrMissingCredentials}

	handler := requireAuth(guard, func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "missing credentials" {
		t.Fatalf("expected missing credentials message, got %q", resp.Message)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	guard := stubGuard{err: auth.ErrInvalidToken}

	handler := requireAuth(guard, func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "invalid token" {
		t.Fatalf("expected invalid token message, got %q", resp.Message)
	}
}

func TestClearSessionCookiesExpiresBoth(t *testing.T) {
	rec := httptest.NewRecorder()

	clearSessionCookies(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, cookie := range cookies {
		if cookie.Value != "" || cookie.MaxAge != -1 {
			t.Fatalf("expected cookie %s to be expired, got %+v", cookie.Name, cookie)
		}
	}
}

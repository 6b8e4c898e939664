package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

type stubPrincipalStore struct {
	account models.Account
	err     error
}

func (s stubPrincipalStore) FindByID(context.Context, string) (models.Account, error) {
	return s.account, s.err
}

func TestGuardAuthenticateFromCookie(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour, store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	account := models.Account{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		Password:     "hash",
		RefreshToken: pair.RefreshToken,
	}
	guard := Guard{Tokens: manager, Accounts: stubPrincipalStore{account: account}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: pair.AccessToken})

	principal, err := guard.Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.ID != "user-1" || principal.Username != "alice" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestGuardAuthenticateFromBearerHeader(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour, store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	guard := Guard{Tokens: manager, Accounts: stubPrincipalStore{account: models.Account{ID: "user-1"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	if _, err := guard.Authenticate(req); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestGuardCookieTakesPrecedenceOverHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	if got := TokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("expected cookie token to win, got %q", got)
	}
}

func TestGuardAuthenticateMissingCredentials(t *testing.T) {
	guard := Guard{
		Tokens:   newTestManager(newInMemoryTokenStore()),
		Accounts: stubPrincipalStore{},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := guard.Authenticate(req); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials got %v", err)
	}
}

func TestGuardAuthenticateInvalidToken(t *testing.T) {
	guard := Guard{
		Tokens:   newTestManager(newInMemoryTokenStore()),
		Accounts: stubPrincipalStore{},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")

	if _, err := guard.Authenticate(req); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestGuardAuthenticateDeletedAccount(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour, store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	guard := Guard{Tokens: manager, Accounts: stubPrincipalStore{err: repositories.ErrNotFound}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	if _, err := guard.Authenticate(req); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for deleted account got %v", err)
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	principal := models.Principal{ID: "user-1", Username: "alice"}
	ctx := WithPrincipal(context.Background(), principal)

	got, ok := PrincipalFromContext(ctx)
	if !ok || got.ID != "user-1" {
		t.Fatalf("expected stored principal, got %+v ok=%v", got, ok)
	}

	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal on empty context")
	}
}

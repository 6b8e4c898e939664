package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

type inMemoryTokenStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newInMemoryTokenStore(ids ...string) *inMemoryTokenStore {
	store := &inMemoryTokenStore{accounts: make(map[string]*models.Account)}
	for _, id := range ids {
		store.accounts[id] = &models.Account{ID: id}
	}
	return store
}

func (s *inMemoryTokenStore) FindByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return *account, nil
}

func (s *inMemoryTokenStore) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	account.RefreshToken = token
	return nil
}

func (s *inMemoryTokenStore) SwapRefreshToken(_ context.Context, id, presented, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if account.RefreshToken != presented {
		return repositories.ErrTokenMismatch
	}
	account.RefreshToken = next
	return nil
}

func (s *inMemoryTokenStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		account.RefreshToken = ""
	}
	return nil
}

func newTestManager(store AccountTokenStore) *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour, store)
}

func TestTokenManagerIssueAndVerify(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", pair)
	}

	accountID, err := manager.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if accountID != "user-1" {
		t.Fatalf("expected subject user-1 got %s", accountID)
	}

	stored, _ := store.FindByID(context.Background(), "user-1")
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatal("refresh token was not mirrored on the account")
	}
}

func TestTokenManagerIssueValidation(t *testing.T) {
	manager := newTestManager(newInMemoryTokenStore())

	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty account id")
	}
	if _, err := manager.Issue(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown account")
	}
}

func TestTokenManagerIssueOverwritesPriorSession(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	first, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	if _, err := manager.Issue(context.Background(), "user-1"); err != nil {
		t.Fatalf("issue second: %v", err)
	}

	if _, err := manager.Rotate(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused for superseded token, got %v", err)
	}
}

func TestTokenManagerRotate(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := manager.Rotate(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// Reusing the rotated-away token must keep failing.
	if _, err := manager.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused got %v", err)
	}
	if _, err := manager.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused on retry got %v", err)
	}
}

func TestTokenManagerRotateRejectsGarbage(t *testing.T) {
	manager := newTestManager(newInMemoryTokenStore("user-1"))

	if _, err := manager.Rotate(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestTokenManagerRotateAfterRevoke(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// Revoke is idempotent.
	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := manager.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused after revoke got %v", err)
	}
}

func TestTokenManagerConcurrentRotation(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const rotations = 8
	results := make(chan error, rotations)
	var start sync.WaitGroup
	start.Add(1)

	for i := 0; i < rotations; i++ {
		go func() {
			start.Wait()
			_, err := manager.Rotate(context.Background(), pair.RefreshToken)
			results <- err
		}()
	}
	start.Done()

	var succeeded, reused int
	for i := 0; i < rotations; i++ {
		switch err := <-results; {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTokenReused):
			reused++
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", succeeded)
	}
	if reused != rotations-1 {
		t.Fatalf("expected %d reuse rejections, got %d", rotations-1, reused)
	}
}

func TestTokenManagerVerifyAccessExpiry(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := NewTokenManager("access-secret", "refresh-secret", 0, time.Hour, store)

	issued := time.Now().UTC()
	manager.WithNowFunc(func() time.Time { return issued })

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A zero-TTL token is already expired one instant later.
	manager.WithNowFunc(func() time.Time { return issued.Add(time.Second) })
	if _, err := manager.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token got %v", err)
	}
}

func TestTokenManagerVerifyAccessRejectsWrongSignature(t *testing.T) {
	store := newInMemoryTokenStore("user-1")
	manager := newTestManager(store)

	pair, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewTokenManager("different-secret", "refresh-secret", time.Minute, time.Hour, store)
	if _, err := other.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong signature got %v", err)
	}

	// A refresh token presented as an access token must also be rejected:
	// the pair is signed with different secrets.
	if _, err := manager.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for refresh-as-access got %v", err)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

// AccountTokenStore is the slice of the account repository the token manager
// needs to mirror refresh tokens.
type AccountTokenStore interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SwapRefreshToken(ctx context.Context, id, presented, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
}

// TokenManager issues, rotates, and verifies signed access/refresh token pairs.
//
// Access tokens are stateless: verification is signature plus expiry only, so
// a leaked access token stays valid for at most its short TTL. The refresh
// token is the sole revocable credential; its current value is mirrored on the
// account row and replaced on every use.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	accounts AccountTokenStore

	nowFunc func() time.Time
}

// NewTokenManager constructs a TokenManager signing with the provided secrets.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, accounts AccountTokenStore) *TokenManager {
	if accounts == nil {
		panic("auth: account token store must not be nil")
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		accounts:      accounts,
		nowFunc:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for expiry tests.
func (m *TokenManager) WithNowFunc(now func() time.Time) *TokenManager {
	m.nowFunc = now
	return m
}

// Issue creates a fresh token pair for the account and overwrites any
// previously stored refresh token, invalidating earlier sessions.
func (m *TokenManager) Issue(ctx context.Context, accountID string) (models.TokenPair, error) {
	if accountID == "" {
		return models.TokenPair{}, errors.New("account id must be provided")
	}

	if _, err := m.accounts.FindByID(ctx, accountID); err != nil {
		return models.TokenPair{}, fmt.Errorf("load account %s: %w", accountID, err)
	}

	pair, err := m.signPair(accountID)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := m.accounts.SetRefreshToken(ctx, accountID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, nil
}

// Rotate exchanges a refresh token for a new pair, invalidating the presented
// token. The swap is conditional on the stored value still matching, so two
// concurrent rotations of the same token yield exactly one success.
func (m *TokenManager) Rotate(ctx context.Context, presented string) (models.TokenPair, error) {
	accountID, err := m.verify(presented, m.refreshSecret)
	if err != nil {
		return models.TokenPair{}, ErrInvalidToken
	}

	if _, err := m.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, ErrInvalidToken
		}
		return models.TokenPair{}, fmt.Errorf("load account %s: %w", accountID, err)
	}

	pair, err := m.signPair(accountID)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := m.accounts.SwapRefreshToken(ctx, accountID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrTokenMismatch) {
			return models.TokenPair{}, ErrTokenReused
		}
		return models.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// Revoke clears the stored refresh token for the account. Idempotent.
func (m *TokenManager) Revoke(ctx context.Context, accountID string) error {
	if err := m.accounts.ClearRefreshToken(ctx, accountID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// VerifyAccess checks the signature and expiry of an access token and returns
// the subject account id. It never touches storage.
func (m *TokenManager) VerifyAccess(token string) (string, error) {
	accountID, err := m.verify(token, m.accessSecret)
	if err != nil {
		return "", ErrInvalidToken
	}
	return accountID, nil
}

func (m *TokenManager) signPair(accountID string) (models.TokenPair, error) {
	now := m.nowFunc()

	access, accessExp, err := m.sign(accountID, now, m.accessTTL, m.accessSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshExp, err := m.sign(accountID, now, m.refreshTTL, m.refreshSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *TokenManager) sign(accountID string, now time.Time, ttl time.Duration, secret []byte) (string, time.Time, error) {
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (m *TokenManager) verify(token string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.nowFunc))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}

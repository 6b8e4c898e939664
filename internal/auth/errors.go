package auth

import "errors"

var (
	// ErrInvalidToken indicates the presented token failed signature or
	// expiry verification, or its subject no longer exists.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenReused indicates a refresh token that no longer matches the
	// account's stored value: it was already rotated or revoked.
	ErrTokenReused = errors.New("refresh token is expired or used")
	// ErrMissingCredentials indicates the request carried no token at all.
	ErrMissingCredentials = errors.New("missing credentials")
)

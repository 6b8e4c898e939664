package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/logging"
	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

const maxUploadBytes = 32 << 20

// UserHandler implements registration, login, and account management endpoints.
type UserHandler struct {
	Accounts AccountStore
	Tokens   TokenService
	Media    MediaStore
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

type sessionData struct {
	User   models.Principal `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

// Register handles POST /api/v1/users/register requests.
//
// The account row is created before any media is uploaded; if the avatar
// upload then fails, the row is deleted again so neither an orphaned upload
// nor an avatar-less account is left behind.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if fullName == "" || username == "" || email == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatarFile := formFile(r, "avatar")
	if avatarFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}

	if _, err := h.Accounts.FindByUsernameOrEmail(ctx, username, email); err == nil {
		respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register lookup failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify existing accounts")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	account := models.Account{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		}
		logger.Error("register failed to create account", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	avatarURL, avatarKey, err := h.uploadMedia(ctx, "avatars", avatarFile)
	if err != nil {
		logger.Error("register avatar upload failed", "error", err, "userId", account.ID)
		if delErr := h.Accounts.Delete(ctx, account.ID); delErr != nil {
			logger.Error("register compensation failed", "error", delErr, "userId", account.ID)
		}
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	account.AvatarURL = avatarURL

	var coverKey string
	if coverFile := formFile(r, "coverImage"); coverFile != nil {
		coverURL, key, err := h.uploadMedia(ctx, "covers", coverFile)
		if err != nil {
			logger.Warn("register cover upload failed", "error", err, "userId", account.ID)
		} else {
			account.CoverURL = coverURL
			coverKey = key
		}
	}

	if err := h.Accounts.UpdateAvatar(ctx, account.ID, account.AvatarURL); err != nil {
		logger.Error("register failed to persist avatar url", "error", err, "userId", account.ID)
		h.discardMedia(ctx, avatarKey, coverKey)
		if delErr := h.Accounts.Delete(ctx, account.ID); delErr != nil {
			logger.Error("register compensation failed", "error", delErr, "userId", account.ID)
		}
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}
	if account.CoverURL != "" {
		if err := h.Accounts.UpdateCover(ctx, account.ID, account.CoverURL); err != nil {
			logger.Warn("register failed to persist cover url", "error", err, "userId", account.ID)
			h.discardMedia(ctx, coverKey)
		}
	}

	respondData(ctx, w, http.StatusCreated, account.Principal(), "user registered successfully")
}

// Login handles POST /api/v1/users/login requests.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if (req.Username == "" && req.Email == "") || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	account, err := h.Accounts.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
			return
		}
		logger.Error("login account lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", account.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Tokens.Issue(ctx, account.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", account.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionData{User: account.Principal(), Tokens: tokens}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout requests.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	if err := h.Tokens.Revoke(ctx, principal.ID); err != nil {
		logging.FromContext(ctx).Error("logout failed to revoke session", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
		return
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, map[string]any{}, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token requests.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many refresh attempts")
		return
	}

	presented := refreshTokenFromRequest(r)
	if presented == "" {
		respondError(ctx, w, http.StatusUnauthorized, "missing credentials")
		return
	}

	tokens, err := h.Tokens.Rotate(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenReused), errors.Is(err, auth.ErrInvalidToken):
			logger.Warn("refresh rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, err.Error())
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password requests.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	account, err := h.Accounts.FindByID(ctx, principal.ID)
	if err != nil {
		logger.Error("change password lookup failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid old password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("change password failed to hash", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Accounts.UpdatePassword(ctx, principal.ID, string(hashed)); err != nil {
		logger.Error("change password persist failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]any{}, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current requests.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	respondData(ctx, w, http.StatusOK, principal, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account requests.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	account, err := h.Accounts.UpdateProfile(ctx, principal.ID, req.FullName, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
		default:
			logger.Error("update account failed", "error", err, "userId", principal.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, account.Principal(), "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar requests.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars", h.Accounts.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image requests.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers", h.Accounts.UpdateCover, "cover image updated successfully")
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field, prefix string,
	persist func(ctx context.Context, id, url string) error, message string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file := formFile(r, field)
	if file == nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("%s file is missing", field))
		return
	}

	url, key, err := h.uploadMedia(ctx, prefix, file)
	if err != nil {
		logger.Error("media upload failed", "error", err, "field", field, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("error while uploading %s", field))
		return
	}

	if err := persist(ctx, principal.ID, url); err != nil {
		logger.Error("media url persist failed", "error", err, "field", field, "userId", principal.ID)
		h.discardMedia(ctx, key)
		respondError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("failed to update %s", field))
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]string{"url": url}, message)
}

func (h UserHandler) uploadMedia(ctx context.Context, prefix string, header *multipart.FileHeader) (url, key string, err error) {
	if h.Media == nil {
		return "", "", errors.New("media store unavailable")
	}

	file, err := header.Open()
	if err != nil {
		return "", "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	key = fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), strings.ToLower(filepath.Ext(header.Filename)))
	url, err = h.Media.Save(ctx, key, file)
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

// discardMedia best-effort deletes uploaded objects whose owning record
// could not be persisted.
func (h UserHandler) discardMedia(ctx context.Context, keys ...string) {
	if h.Media == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.Media.Remove(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("failed to remove uploaded media", "key", key, "error", err)
		}
	}
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

func principalOrFail(ctx context.Context, w http.ResponseWriter) (models.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		logging.FromContext(ctx).Error("principal missing from context")
		respondError(ctx, w, http.StatusUnauthorized, "missing credentials")
		return models.Principal{}, false
	}
	return principal, true
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

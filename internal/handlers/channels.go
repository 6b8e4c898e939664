package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/logging"
	"github.com/viewtube/backend/internal/repositories"
)

// ChannelHandler serves channel profile views.
type ChannelHandler struct {
	Graph GraphQueries
}

// Profile handles GET /api/v1/channels/{username} requests.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is missing")
		return
	}

	var viewerID string
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		viewerID = principal.ID
	}

	profile, err := h.Graph.Profile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel profile query failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch channel profile")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

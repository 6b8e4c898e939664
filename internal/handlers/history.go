package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/viewtube/backend/internal/logging"
	"github.com/viewtube/backend/internal/repositories"
)

// HistoryHandler serves the caller's watch history.
type HistoryHandler struct {
	History WatchHistoryStore
}

// List handles GET /api/v1/users/history requests.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	entries, err := h.History.ListForUser(ctx, principal.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history query failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch watch history")
		return
	}

	respondData(ctx, w, http.StatusOK, entries, "watch history fetched successfully")
}

// Record handles POST /api/v1/users/history/{videoId} requests. Re-watching a
// video moves its entry to the front of the history.
func (h HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	videoID := r.PathValue("videoId")
	if _, err := uuid.Parse(videoID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	if err := h.History.Record(ctx, principal.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
		logging.FromContext(ctx).Error("watch history record failed", "error", err, "userId", principal.ID, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to record watch entry")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]any{}, "watch entry recorded")
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/viewtube/backend/internal/logging"
	"github.com/viewtube/backend/internal/repositories"
)

// SubscriptionHandler implements the toggle endpoint and the derived
// subscriber/subscription list views.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Graph         GraphQueries
}

// Toggle handles POST /api/v1/subscriptions/{channelId} requests. It flips
// the subscription edge between the caller and the channel.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := principalOrFail(ctx, w)
	if !ok {
		return
	}

	channelID := r.PathValue("channelId")
	if _, err := uuid.Parse(channelID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
		return
	}

	if channelID == principal.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, principal.ID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logger.Error("subscription toggle failed", "error", err, "userId", principal.ID, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to toggle subscription")
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// ChannelSubscribers handles GET /api/v1/subscriptions/channel/{channelId} requests.
func (h SubscriptionHandler) ChannelSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := r.PathValue("channelId")
	if _, err := uuid.Parse(channelID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
		return
	}

	subscribers, err := h.Graph.ChannelSubscribers(ctx, channelID)
	if err != nil {
		logging.FromContext(ctx).Error("channel subscribers query failed", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch subscribers")
		return
	}

	respondData(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/user/{subscriberId} requests.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := r.PathValue("subscriberId")
	if _, err := uuid.Parse(subscriberID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid subscriber id")
		return
	}

	channels, err := h.Graph.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		logging.FromContext(ctx).Error("subscribed channels query failed", "error", err, "subscriberId", subscriberID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch subscribed channels")
		return
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}

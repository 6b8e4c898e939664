package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/viewtube/backend/internal/graph"
	"github.com/viewtube/backend/internal/models"
)

// AccountStore captures the persistence operations required by the user handlers.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.Account, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateCover(ctx context.Context, id, coverURL string) error
	Delete(ctx context.Context, id string) error
}

// TokenService issues, rotates, and revokes session token pairs.
type TokenService interface {
	Issue(ctx context.Context, accountID string) (models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Revoke(ctx context.Context, accountID string) error
}

// SessionGuard resolves the authenticated principal for a request.
type SessionGuard interface {
	Authenticate(r *http.Request) (models.Principal, error)
}

// SubscriptionStore captures the edge operations required by the subscription handlers.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// GraphQueries answers the derived read-model views.
type GraphQueries interface {
	ChannelSubscribers(ctx context.Context, channelID string) ([]graph.Subscriber, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]graph.SubscribedChannel, error)
	Profile(ctx context.Context, username, viewerID string) (graph.ChannelProfile, error)
}

// WatchHistoryStore records and lists watched videos.
type WatchHistoryStore interface {
	Record(ctx context.Context, userID, videoID string) error
	ListForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
}

// MediaStore persists uploaded media and returns its public location.
// Remove discards a previously saved object when its owning record cannot
// be persisted.
type MediaStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
}

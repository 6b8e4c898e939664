package repositories

import (
	"context"

	"github.com/viewtube/backend/internal/models"
)

// VideoRepository defines the data access contract for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	FindLatestByOwner(ctx context.Context, ownerID string) (models.Video, error)
}

// WatchHistoryRepository records and lists which videos an account watched.
type WatchHistoryRepository interface {
	Record(ctx context.Context, userID, videoID string) error
	ListForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
}

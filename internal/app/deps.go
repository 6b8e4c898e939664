package app

import (
	"context"
	"fmt"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/config"
	"github.com/viewtube/backend/internal/db"
	"github.com/viewtube/backend/internal/graph"
	"github.com/viewtube/backend/internal/handlers"
	"github.com/viewtube/backend/internal/middleware"
	"github.com/viewtube/backend/internal/repositories"
	"github.com/viewtube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	accounts := repositories.NewPostgresAccountRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	tokens := auth.NewTokenManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		accounts,
	)

	var media handlers.MediaStore
	if cfg.ObjectStore.Bucket != "" {
		s3store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure media store: %w", err)
		}
		media = s3store
	}

	limiter := middleware.NewIPRateLimiter(
		cfg.AuthRateLimit.Requests, cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.Burst, cfg.AuthRateLimit.TTL,
	)

	return handlers.Dependencies{
		Accounts:      accounts,
		Tokens:        tokens,
		Guard:         auth.Guard{Tokens: tokens, Accounts: accounts},
		Subscriptions: subscriptions,
		Graph:         graph.NewEngine(pool),
		History:       videos,
		Media:         media,
		AuthLimiter:   limiter,
	}, nil
}

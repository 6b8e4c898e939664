// Package graph computes derived read models over the subscription edge set.
// Every view is a single SQL statement, so each call observes one consistent
// storage snapshot and no counters are cached anywhere.
package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/viewtube/backend/internal/db"
	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

// ChannelProfile is an account viewed as a channel, with exact edge counts
// computed at read time.
type ChannelProfile struct {
	ID                   string `json:"id"`
	Username             string `json:"username"`
	FullName             string `json:"fullName"`
	Email                string `json:"email"`
	AvatarURL            string `json:"avatar"`
	CoverURL             string `json:"coverImage"`
	SubscriberCount      int    `json:"subscriberCount"`
	SubscribedToCount    int    `json:"channelsSubscribedToCount"`
	IsSubscribedByViewer bool   `json:"isSubscribed"`
}

// Subscriber is one entry of the subscribers-of-channel view.
type Subscriber struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
	// SubscribedToSubscriber reports whether the channel being listed
	// subscribes back to this account.
	SubscribedToSubscriber bool `json:"subscribedToSubscriber"`
	SubscriberCount        int  `json:"subscribersCount"`
}

// SubscribedChannel is one entry of the subscriptions-of-user view.
type SubscribedChannel struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	FullName    string        `json:"fullName"`
	AvatarURL   string        `json:"avatar"`
	LatestVideo *models.Video `json:"latestVideo"`
}

// Engine answers aggregate queries over accounts, subscription edges, and
// videos. It is read-only.
type Engine struct {
	pool db.Pool
}

// NewEngine constructs a graph query engine backed by PostgreSQL.
func NewEngine(pool db.Pool) *Engine {
	return &Engine{pool: pool}
}

// ChannelSubscribers lists every account subscribed to the channel, newest
// edge first. Each entry carries the subscriber's own live subscriber count
// and whether the channel subscribes back.
func (e *Engine) ChannelSubscribers(ctx context.Context, channelID string) ([]Subscriber, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url,
               EXISTS (
                   SELECT 1 FROM subscriptions back
                   WHERE back.subscriber_id = $1 AND back.channel_id = u.id
               ) AS subscribed_to_subscriber,
               (SELECT count(*) FROM subscriptions own WHERE own.channel_id = u.id) AS subscriber_count
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []Subscriber
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Username, &sub.FullName, &sub.AvatarURL,
			&sub.SubscribedToSubscriber, &sub.SubscriberCount); err != nil {
			return nil, fmt.Errorf("scan channel subscriber: %w", err)
		}
		subscribers = append(subscribers, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel subscribers: %w", err)
	}

	return subscribers, nil
}

// SubscribedChannels lists every channel the account subscribes to, newest
// edge first, each with the channel's most recently created video if any.
func (e *Engine) SubscribedChannels(ctx context.Context, subscriberID string) ([]SubscribedChannel, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url,
               v.id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.duration_seconds, v.views, v.created_at
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        LEFT JOIN LATERAL (
            SELECT id, title, description, video_url, thumbnail_url, duration_seconds, views, created_at
            FROM videos
            WHERE owner_id = u.id
            ORDER BY created_at DESC
            LIMIT 1
        ) v ON true
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscribed channels: %w", err)
	}
	defer rows.Close()

	var channels []SubscribedChannel
	for rows.Next() {
		var (
			channel   SubscribedChannel
			videoID   sql.NullString
			title     sql.NullString
			desc      sql.NullString
			videoURL  sql.NullString
			thumbURL  sql.NullString
			duration  sql.NullFloat64
			views     sql.NullInt64
			createdAt sql.NullTime
		)

		if err := rows.Scan(&channel.ID, &channel.Username, &channel.FullName, &channel.AvatarURL,
			&videoID, &title, &desc, &videoURL, &thumbURL, &duration, &views, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscribed channel: %w", err)
		}

		if videoID.Valid {
			channel.LatestVideo = &models.Video{
				ID:           videoID.String,
				OwnerID:      channel.ID,
				Title:        title.String,
				Description:  desc.String,
				VideoURL:     videoURL.String,
				ThumbnailURL: thumbURL.String,
				Duration:     duration.Float64,
				Views:        views.Int64,
				CreatedAt:    createdAt.Time.UTC(),
			}
		}

		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed channels: %w", err)
	}

	return channels, nil
}

// Profile resolves a channel by lowercase username with its exact subscriber
// and subscription counts. viewerID may be empty for unauthenticated callers,
// in which case IsSubscribedByViewer is false.
func (e *Engine) Profile(ctx context.Context, username, viewerID string) (ChannelProfile, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var viewer any
	if viewerID != "" {
		viewer = viewerID
	}

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url, u.cover_url,
               (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
               (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
               EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id = $2::uuid
               ) AS is_subscribed
        FROM users u
        WHERE u.username = $1
    `, username, viewer)

	var profile ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email,
		&profile.AvatarURL, &profile.CoverURL, &profile.SubscriberCount,
		&profile.SubscribedToCount, &profile.IsSubscribedByViewer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelProfile{}, repositories.ErrNotFound
		}
		return ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

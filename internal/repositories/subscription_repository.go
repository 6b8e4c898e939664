package repositories

import "context"

// SubscriptionRepository defines the data access contract for subscription edges.
type SubscriptionRepository interface {
	// Toggle atomically flips the edge for (subscriberID, channelID) and
	// reports whether the edge exists after the call.
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountForChannel(ctx context.Context, channelID string) (int, error)
}

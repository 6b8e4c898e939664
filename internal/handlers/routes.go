package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{Accounts: deps.Accounts, Tokens: deps.Tokens, Media: deps.Media, Limiter: deps.AuthLimiter}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Graph: deps.Graph}
	channels := ChannelHandler{Graph: deps.Graph}
	history := HistoryHandler{History: deps.History}
	guard := deps.Guard

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.HandleFunc("POST /api/v1/users/logout", requireAuth(guard, users.Logout))
	mux.HandleFunc("POST /api/v1/users/change-password", requireAuth(guard, users.ChangePassword))
	mux.HandleFunc("GET /api/v1/users/current", requireAuth(guard, users.CurrentUser))
	mux.HandleFunc("PATCH /api/v1/users/update-account", requireAuth(guard, users.UpdateAccount))
	mux.HandleFunc("PATCH /api/v1/users/avatar", requireAuth(guard, users.UpdateAvatar))
	mux.HandleFunc("PATCH /api/v1/users/cover-image", requireAuth(guard, users.UpdateCoverImage))
	mux.HandleFunc("GET /api/v1/users/history", requireAuth(guard, history.List))
	mux.HandleFunc("POST /api/v1/users/history/{videoId}", requireAuth(guard, history.Record))

	mux.HandleFunc("GET /api/v1/channels/{username}", requireAuth(guard, channels.Profile))

	mux.HandleFunc("POST /api/v1/subscriptions/{channelId}", requireAuth(guard, subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/subscriptions/channel/{channelId}", subscriptions.ChannelSubscribers)
	mux.HandleFunc("GET /api/v1/subscriptions/user/{subscriberId}", subscriptions.SubscribedChannels)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountStore
	Tokens        TokenService
	Guard         SessionGuard
	Subscriptions SubscriptionStore
	Graph         GraphQueries
	History       WatchHistoryStore
	Media         MediaStore
	AuthLimiter   RateLimiter
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/viewtube/backend/internal/auth"
	"github.com/viewtube/backend/internal/graph"
	"github.com/viewtube/backend/internal/models"
	"github.com/viewtube/backend/internal/repositories"
)

type inMemorySubscriptionStore struct {
	mu       sync.Mutex
	channels map[string]bool
	edges    map[[2]string]bool
}

func newInMemorySubscriptionStore(channelIDs ...string) *inMemorySubscriptionStore {
	store := &inMemorySubscriptionStore{
		channels: make(map[string]bool),
		edges:    make(map[[2]string]bool),
	}
	for _, id := range channelIDs {
		store.channels[id] = true
	}
	return store
}

func (s *inMemorySubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.channels[channelID] {
		return false, repositories.ErrNotFound
	}
	key := [2]string{subscriberID, channelID}
	if s.edges[key] {
		delete(s.edges, key)
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}

type stubGraphQueries struct {
	subscribers []graph.Subscriber
	channels    []graph.SubscribedChannel
	profile     graph.ChannelProfile
	profileErr  error
}

func (s *stubGraphQueries) ChannelSubscribers(_ context.Context, channelID string) ([]graph.Subscriber, error) {
	return s.subscribers, nil
}

func (s *stubGraphQueries) SubscribedChannels(_ context.Context, subscriberID string) ([]graph.SubscribedChannel, error) {
	return s.channels, nil
}

func (s *stubGraphQueries) Profile(_ context.Context, username, viewerID string) (graph.ChannelProfile, error) {
	if s.profileErr != nil {
		return graph.ChannelProfile{}, s.profileErr
	}
	return s.profile, nil
}

const (
	testUserID    = "5aeb1e09-5c0e-4bd5-94be-e0a75ffa38e4"
	testChannelID = "91f6ab35-8f1e-4d7c-a2cb-9f6f20eabcde"
)

func authedRequest(method, target string, principal models.Principal) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithPrincipal(req.Context(), principal))
}

func TestSubscriptionHandlerToggle(t *testing.T) {
	store := newInMemorySubscriptionStore(testChannelID)
	handler := SubscriptionHandler{Subscriptions: store}

	toggle := func() *httptest.ResponseRecorder {
		req := authedRequest(http.MethodPost, "/api/v1/subscriptions/"+testChannelID, models.Principal{ID: testUserID})
		req.SetPathValue("channelId", testChannelID)
		rec := httptest.NewRecorder()
		handler.Toggle(rec, req)
		return rec
	}

	rec := toggle()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "subscribed successfully" {
		t.Fatalf("expected subscribe message, got %q", resp.Message)
	}

	rec = toggle()
	if resp := decodeEnvelope(t, rec); resp.Message != "unsubscribed successfully" {
		t.Fatalf("expected unsubscribe message, got %q", resp.Message)
	}

	if len(store.edges) != 0 {
		t.Fatalf("expected no edges after even toggle count, got %d", len(store.edges))
	}
}

func TestSubscriptionHandlerToggleRejectsSelf(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(testUserID)}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/"+testUserID, models.Principal{ID: testUserID})
	req.SetPathValue("channelId", testUserID)
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSubscriptionHandlerToggleInvalidChannelID(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore()}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/not-a-uuid", models.Principal{ID: testUserID})
	req.SetPathValue("channelId", "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSubscriptionHandlerToggleUnknownChannel(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore()}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/"+testChannelID, models.Principal{ID: testUserID})
	req.SetPathValue("channelId", testChannelID)
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSubscriptionHandlerToggleRequiresPrincipal(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(testChannelID)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/"+testChannelID, nil)
	req.SetPathValue("channelId", testChannelID)
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSubscriptionHandlerChannelSubscribers(t *testing.T) {
	queries := &stubGraphQueries{subscribers: []graph.Subscriber{
		{ID: testUserID, Username: "alice", SubscribedToSubscriber: true, SubscriberCount: 3},
	}}
	handler := SubscriptionHandler{Graph: queries}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/channel/"+testChannelID, nil)
	req.SetPathValue("channelId", testChannelID)
	rec := httptest.NewRecorder()

	handler.ChannelSubscribers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	entries, ok := resp.Data.([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one subscriber entry, got %#v", resp.Data)
	}
}

func TestSubscriptionHandlerSubscribedChannels(t *testing.T) {
	queries := &stubGraphQueries{channels: []graph.SubscribedChannel{
		{ID: testChannelID, Username: "bob"},
	}}
	handler := SubscriptionHandler{Graph: queries}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/user/"+testUserID, nil)
	req.SetPathValue("subscriberId", testUserID)
	rec := httptest.NewRecorder()

	handler.SubscribedChannels(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestSubscriptionHandlerSubscribedChannelsInvalidID(t *testing.T) {
	handler := SubscriptionHandler{Graph: &stubGraphQueries{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/user/nope", nil)
	req.SetPathValue("subscriberId", "nope")
	rec := httptest.NewRecorder()

	handler.SubscribedChannels(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"beam/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type eventSink struct {
	mu     sync.Mutex
	events []PostEvent
}

func (s *eventSink) add(e PostEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) snapshot() []PostEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PostEvent(nil), s.events...)
}

func TestNotifierNilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishPostEvent(context.Background(), PostEvent{Type: EventPostCreated}))
	assert.NoError(t, n.SubscribePostEvents(context.Background(), func(PostEvent) {}))
}

func TestNotifierPublishSubscribe(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &eventSink{}
	require.NoError(t, n.SubscribePostEvents(ctx, sink.add))

	require.NoError(t, n.PublishPostEvent(context.Background(), PostEvent{
		Type:    EventPostHidden,
		Payload: PostEventPayload{PostID: 3, ActorID: 9},
	}))

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	got := sink.snapshot()[0]
	assert.Equal(t, EventPostHidden, got.Type)

	assert.Equal(t, PostEventPayload{PostID: 3, ActorID: 9}, got.Payload)
}

func TestNotifierSkipsMalformedPayloads(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &eventSink{}
	require.NoError(t, n.SubscribePostEvents(ctx, sink.add))

	require.NoError(t, rdb.Publish(context.Background(), PostEventsChannel, "{not json").Err())
	require.NoError(t, n.PublishPostEvent(context.Background(), PostEvent{Type: EventPostDeleted}))

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, EventPostDeleted, sink.snapshot()[0].Type)
}

func TestAnnouncerPostCreated(t *testing.T) {
	rdb := newTestRedis(t)
	notifier := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &eventSink{}
	require.NoError(t, notifier.SubscribePostEvents(ctx, sink.add))

	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		mu.Lock()
		texts = append(texts, body.Text)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(2, 8)
	a := NewAnnouncer(d, NewSlackPoster(srv.URL, "https://beam.example", srv.Client()), notifier)

	a.PostCreated(models.Post{ID: 5, Title: "Fresh", Content: "body", AuthorID: 2}, "Linus")
	a.PostVisibilityChanged(5, 1, true)
	a.PostDeleted(5, 2)
	d.Close()

	mu.Lock()
	assert.Equal(t, []string{"New post: Fresh"}, texts)
	mu.Unlock()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
	types := map[string]bool{}
	for _, e := range sink.snapshot() {
		types[e.Type] = true
	}
	assert.True(t, types[EventPostCreated])
	assert.True(t, types[EventPostHidden])
	assert.True(t, types[EventPostDeleted])
}

func TestAnnouncerWithoutChannels(t *testing.T) {
	d := NewDispatcher(1, 1)
	a := NewAnnouncer(d, nil, nil)

	a.PostCreated(models.Post{ID: 1}, "x")
	a.PostDeleted(1, 1)
	d.Close()

	assert.Zero(t, d.Dropped(), "nothing is queued when no channel is configured")
}

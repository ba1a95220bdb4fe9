package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect registers a client without a websocket behind it.
func connect(t *testing.T, h *Hub) *Client {
	t.Helper()

	c := newClient(h, nil)
	require.True(t, h.register(c))
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()

	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "client was disconnected")
		var e Event
		require.NoError(t, json.Unmarshal(msg, &e))
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected event: %s", msg)
	default:
	}
}

func TestHub_Broadcasts(t *testing.T) {
	h := NewHub(testLogger())
	a, b := connect(t, h), connect(t, h)

	h.EmitNewBlog(map[string]string{"title": "Hello"}, "Hello")

	for _, c := range []*Client{a, b} {
		e := receive(t, c)
		assert.Equal(t, EventNewBlog, e.Type)
		assert.Equal(t, "New blog post: Hello", e.Message)
		assert.False(t, e.Timestamp.IsZero())
	}

	userID := uuid.New()
	h.BroadcastUserAction("login", userID, "jane", "Jane")

	e := receive(t, a)
	assert.Equal(t, EventUserAction, e.Type)
	assert.Equal(t, "login", e.Action)
	require.NotNil(t, e.User)
	assert.Equal(t, UserRef{ID: userID, Username: "jane", Name: "Jane"}, *e.User)
	receive(t, b)

	blogID := uuid.New()
	h.EmitBlogDelete(blogID)
	e = receive(t, b)
	assert.Equal(t, EventBlogDeleted, e.Type)
	require.NotNil(t, e.BlogID)
	assert.Equal(t, blogID, *e.BlogID)
}

func TestHub_Rooms(t *testing.T) {
	h := NewHub(testLogger())
	member, outsider := connect(t, h), connect(t, h)

	blogID := uuid.New()
	member.handle(inbound{Type: msgJoinBlog, Data: blogID.String()})

	commentID := uuid.New()
	h.EmitNewComment(blogID, map[string]string{"content": "hi"})
	h.EmitCommentDelete(blogID, commentID)

	e := receive(t, member)
	assert.Equal(t, EventNewComment, e.Type)
	assert.Equal(t, "New comment on this post", e.Message)
	assert.Equal(t, blogID, *e.BlogID)

	e = receive(t, member)
	assert.Equal(t, EventCommentDeleted, e.Type)
	assert.Equal(t, commentID, *e.CommentID)
	assertSilent(t, outsider)

	h.EmitBlogUpdate(blogID, map[string]string{"title": "New"}, "New")

	global := receive(t, member)
	assert.Equal(t, "Blog updated: New", global.Message)
	scoped := receive(t, member)
	assert.Equal(t, EventBlogUpdated, scoped.Type)
	assert.Empty(t, scoped.Message)

	e = receive(t, outsider)
	assert.Equal(t, EventBlogUpdated, e.Type)
	assertSilent(t, outsider)

	member.handle(inbound{Type: msgLeaveBlog, Data: blogID.String()})
	assert.Equal(t, 0, h.Stats().Rooms)

	h.EmitCommentUpdate(blogID, nil)
	assertSilent(t, member)
}

func TestHub_NotifyUser(t *testing.T) {
	h := NewHub(testLogger())
	first, second := connect(t, h), connect(t, h)

	userID := uuid.New()
	first.handle(inbound{Type: msgJoin, Data: userID.String()})
	second.handle(inbound{Type: msgJoin, Data: strings.ToUpper(userID.String())})

	h.NotifyUser(userID, map[string]string{"message": "ping"})

	e := receive(t, second)
	assert.Equal(t, EventNotification, e.Type)
	assert.Equal(t, map[string]any{"message": "ping"}, e.Data)
	assertSilent(t, first)

	// the stale connection going away must not drop the live mapping
	h.unregister(first)
	assert.Equal(t, 1, h.Stats().Users)

	h.unregister(second)
	assert.Equal(t, 0, h.Stats().Users)

	// no connection, no error
	h.NotifyUser(userID, "lost")
	h.NotifyUser(uuid.New(), "nobody")
}

func TestHub_IgnoresMalformedFrames(t *testing.T) {
	h := NewHub(testLogger())
	c := connect(t, h)

	c.handle(inbound{Type: msgJoin, Data: "not-a-uuid"})
	c.handle(inbound{Type: "dance", Data: uuid.NewString()})

	assert.Equal(t, Stats{Connections: 1}, h.Stats())
}

func TestHub_DropsSlowClients(t *testing.T) {
	h := NewHub(testLogger())
	slow := connect(t, h)
	slow.handle(inbound{Type: msgJoin, Data: uuid.NewString()})

	for i := 0; i <= sendBuffer; i++ {
		h.EmitBlogDelete(uuid.New())
	}

	assert.Equal(t, Stats{}, h.Stats())

	for range slow.send {
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub(testLogger())
	c := connect(t, h)

	h.Close()

	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, h.register(newClient(h, nil)))
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, d Delivery) error {
	args := m.Called(d)
	return args.Error(0)
}

func TestHub_Publisher(t *testing.T) {
	h := NewHub(testLogger())
	c := connect(t, h)

	pub := new(mockPublisher)
	pub.On("Publish", mock.MatchedBy(func(d Delivery) bool { return d.Event.Type == EventNewBlog })).Return(nil).Once()
	pub.On("Publish", mock.MatchedBy(func(d Delivery) bool { return d.Event.Type == EventBlogDeleted })).Return(errors.New("broker down")).Once()
	h.SetPublisher(pub)

	h.EmitNewBlog(nil, "Published")
	assertSilent(t, c)

	h.EmitBlogDelete(uuid.New())
	e := receive(t, c)
	assert.Equal(t, EventBlogDeleted, e.Type)

	pub.AssertExpectations(t)
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub(testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	blogID := uuid.New()
	userID := uuid.New()
	require.NoError(t, conn.WriteJSON(inbound{Type: msgJoin, Data: userID.String()}))
	require.NoError(t, conn.WriteJSON(inbound{Type: msgJoinBlog, Data: blogID.String()}))

	require.Eventually(t, func() bool {
		return h.Stats() == Stats{Connections: 1, Users: 1, Rooms: 1}
	}, 2*time.Second, 10*time.Millisecond)

	h.EmitNewComment(blogID, map[string]string{"content": "over the wire"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, EventNewComment, e.Type)
	assert.Equal(t, blogID, *e.BlogID)

	conn.Close()
	require.Eventually(t, func() bool {
		return h.Stats() == Stats{}
	}, 2*time.Second, 10*time.Millisecond)
}

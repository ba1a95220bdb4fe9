package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Publisher forwards deliveries to every server instance, this one included.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}

// Hub tracks live connections, the user each one announced and the post rooms each one joined.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	users   map[string]*Client
	rooms   map[string]map[*Client]struct{}
	closed  bool

	pub      Publisher
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub that accepts websocket upgrades from the given origins. An empty list accepts any origin.
func NewHub(logger *slog.Logger, origins ...string) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		users:   make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}

	return h
}

// SetPublisher routes every emit through p. Deliveries then reach local clients when p hands them back.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.pub = p
	h.mu.Unlock()
}

// ServeWS upgrades the request and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[c] = struct{}{}
	return true
}

// unregister forgets c everywhere. The user entry is only removed if it still points to c.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)

	if c.userID != "" && h.users[c.userID] == c {
		delete(h.users, c.userID)
	}

	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// identify maps userID to c, replacing any earlier connection for that user.
func (h *Hub) identify(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	if c.userID != "" && c.userID != userID && h.users[c.userID] == c {
		delete(h.users, c.userID)
	}

	c.userID = userID
	h.users[userID] = c
}

func (h *Hub) joinRoom(c *Client, blogID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	room := roomName(blogID)
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveRoom(c *Client, blogID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := roomName(blogID)
	delete(c.rooms, room)

	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// dispatch hands d to the publisher when there is one and falls back to local delivery.
func (h *Hub) dispatch(d Delivery) {
	h.mu.RLock()
	pub := h.pub
	h.mu.RUnlock()

	if pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := pub.Publish(ctx, d)
		if err == nil {
			return
		}
		h.logger.Error("could not publish realtime event", slog.String("type", string(d.Event.Type)), slog.String("error", err.Error()))
	}

	h.Deliver(d)
}

// Deliver writes d to the matching local connections. Clients whose send buffer is full are dropped.
func (h *Hub) Deliver(d Delivery) {
	msg, err := json.Marshal(d.Event)
	if err != nil {
		h.logger.Error("could not encode realtime event", slog.String("type", string(d.Event.Type)), slog.String("error", err.Error()))
		return
	}

	var slow []*Client

	h.mu.RLock()
	switch d.Scope {
	case ScopeAll:
		for c := range h.clients {
			if !c.enqueue(msg) {
				slow = append(slow, c)
			}
		}
	case ScopeRoom:
		for c := range h.rooms[d.Target] {
			if !c.enqueue(msg) {
				slow = append(slow, c)
			}
		}
	case ScopeUser:
		if c, ok := h.users[d.Target]; ok && !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, c := range slow {
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(e Event) {
	h.dispatch(Delivery{Scope: ScopeAll, Event: e})
}

func (h *Hub) toRoom(blogID uuid.UUID, e Event) {
	h.dispatch(Delivery{Scope: ScopeRoom, Target: roomName(blogID.String()), Event: e})
}

func (h *Hub) EmitNewBlog(blog any, title string) {
	e := newEvent(EventNewBlog)
	e.Data = blog
	e.Message = "New blog post: " + title
	h.broadcast(e)
}

func (h *Hub) EmitBlogUpdate(blogID uuid.UUID, blog any, title string) {
	e := newEvent(EventBlogUpdated)
	e.Data = blog
	e.Message = "Blog updated: " + title
	h.broadcast(e)

	e = newEvent(EventBlogUpdated)
	e.Data = blog
	h.toRoom(blogID, e)
}

func (h *Hub) EmitBlogDelete(blogID uuid.UUID) {
	e := newEvent(EventBlogDeleted)
	e.BlogID = &blogID
	h.broadcast(e)
}

func (h *Hub) EmitNewComment(postID uuid.UUID, comment any) {
	e := newEvent(EventNewComment)
	e.Data = comment
	e.BlogID = &postID
	e.Message = "New comment on this post"
	h.toRoom(postID, e)
}

func (h *Hub) EmitCommentUpdate(postID uuid.UUID, comment any) {
	e := newEvent(EventCommentUpdated)
	e.Data = comment
	e.BlogID = &postID
	h.toRoom(postID, e)
}

func (h *Hub) EmitCommentDelete(postID, commentID uuid.UUID) {
	e := newEvent(EventCommentDeleted)
	e.BlogID = &postID
	e.CommentID = &commentID
	h.toRoom(postID, e)
}

// NotifyUser sends payload to the user's current connection, if any. Nothing is kept for offline users.
func (h *Hub) NotifyUser(userID uuid.UUID, payload any) {
	e := newEvent(EventNotification)
	e.Data = payload
	h.dispatch(Delivery{Scope: ScopeUser, Target: userID.String(), Event: e})
}

func (h *Hub) BroadcastUserAction(action string, userID uuid.UUID, username, name string) {
	e := newEvent(EventUserAction)
	e.Action = action
	e.User = &UserRef{ID: userID, Username: username, Name: name}
	h.broadcast(e)
}

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{Connections: len(h.clients), Users: len(h.users), Rooms: len(h.rooms)}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventNewBlog        EventType = "new-blog"
	EventBlogUpdated    EventType = "blog-updated"
	EventBlogDeleted    EventType = "blog-deleted"
	EventNewComment     EventType = "new-comment"
	EventCommentUpdated EventType = "comment-updated"
	EventCommentDeleted EventType = "comment-deleted"
	EventNotification   EventType = "notification"
	EventUserAction     EventType = "user-action"
)

// UserRef identifies the subject of a user-action event.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
}

// Event is the JSON frame pushed to clients.
type Event struct {
	Type      EventType  `json:"type"`
	Data      any        `json:"data,omitempty"`
	Message   string     `json:"message,omitempty"`
	BlogID    *uuid.UUID `json:"blogId,omitempty"`
	CommentID *uuid.UUID `json:"commentId,omitempty"`
	Action    string     `json:"action,omitempty"`
	User      *UserRef   `json:"user,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC()}
}

type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeRoom Scope = "room"
	ScopeUser Scope = "user"
)

// Delivery addresses an event: every client, the members of one room, or the current connection of one user.
type Delivery struct {
	Scope  Scope  `json:"scope"`
	Target string `json:"target,omitempty"`
	Event  Event  `json:"event"`
}

// inbound is a frame sent by a client.
type inbound struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

const (
	msgJoin      = "join"
	msgJoinBlog  = "join-blog"
	msgLeaveBlog = "leave-blog"
)

func roomName(blogID string) string {
	return "blog-" + blogID
}

package commentservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
)

const (
	ListTTL = 5 * time.Minute

	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Notifier pushes comment events to the clients watching a post, and personal notices to a single user.
type Notifier interface {
	EmitNewComment(postID uuid.UUID, comment any)
	EmitCommentUpdate(postID uuid.UUID, comment any)
	EmitCommentDelete(postID, commentID uuid.UUID)
	NotifyUser(userID uuid.UUID, payload any)
}

// PostRef is the slice of a blog post shown next to a comment outside its thread.
type PostRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Slug  string    `json:"slug"`
}

type Comment struct {
	ID        uuid.UUID          `json:"id"`
	Content   string             `json:"content"`
	Author    blogservice.Author `json:"author"`
	PostID    uuid.UUID          `json:"postId"`
	Post      *PostRef           `json:"post,omitempty"`
	ParentID  *uuid.UUID         `json:"parentId"`
	IsEdited  bool               `json:"isEdited"`
	EditedAt  *time.Time         `json:"editedAt,omitempty"`
	Replies   []*Comment         `json:"replies,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Notification is the personal notice sent to a post author when someone else comments.
type Notification struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	BlogID    uuid.UUID `json:"blogId"`
	CommentID uuid.UUID `json:"commentId"`
}

type CommentModel struct {
	db *sql.DB
}

type CommentService struct {
	m     *CommentModel
	blogs *blogservice.BlogService
	c     *common.Cache
	n     Notifier
}

type CreateCommentRequest struct {
	Content  string     `json:"content"`
	ParentID *uuid.UUID `json:"parentComment"`
}

type UpdateCommentRequest struct {
	Content *string `json:"content"`
}

// CommentFilter narrows the admin comment listing.
type CommentFilter struct {
	AuthorID uuid.UUID
	PostID   uuid.UUID
	Page     common.Page
}

package blogservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

const (
	ListTTL     = 5 * time.Minute
	TrendingTTL = 10 * time.Minute

	defaultTrendingLimit = 5
	maxTrendingLimit     = 20
	defaultPageLimit     = 10
	maxPageLimit         = 100
)

// Notifier pushes blog events to connected real-time clients.
type Notifier interface {
	EmitNewBlog(blog any, title string)
	EmitBlogUpdate(blogID uuid.UUID, blog any, title string)
	EmitBlogDelete(blogID uuid.UUID)
}

type Author struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
}

type Blog struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Content      string     `json:"content"`
	Excerpt      string     `json:"excerpt"`
	CoverImage   string     `json:"coverImage"`
	Tags         []string   `json:"tags"`
	Status       Status     `json:"status"`
	Views        int64      `json:"views"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	Author       Author     `json:"author"`
	CommentCount int        `json:"commentCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Version      int        `json:"-"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m *BlogModel
	c *common.Cache
	n Notifier
}

type CreateBlogRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	CoverImage string   `json:"coverImage"`
	Tags       []string `json:"tags"`
	Status     Status   `json:"status"`
}

// UpdateBlogRequest lists every field an owner or admin may change. Nil fields are left untouched.
type UpdateBlogRequest struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CoverImage *string   `json:"coverImage"`
	Tags       *[]string `json:"tags"`
	Status     *Status   `json:"status"`
}

type BlogFilter struct {
	Status string
	Author string
	Tag    string
	Search string
	SortBy string
	Order  string
	// Deleted selects soft-deleted rows. It is honoured for admins only; everyone else sees live posts.
	Deleted *bool
	// IncludeDeleted lists live and soft-deleted rows together. Admins only.
	IncludeDeleted bool
	Page           common.Page
}

package userservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

const (
	AccessTokenTime  time.Duration = 7 * 24 * time.Hour
	RefreshTokenTime time.Duration = 30 * 24 * time.Hour
)

// AnonymousUser is placed in the request context when no credentials were presented.
var AnonymousUser = &User{}

// ActionBroadcaster publishes account events (register, login, logout) to connected real-time clients.
type ActionBroadcaster interface {
	BroadcastUserAction(action string, userID uuid.UUID, username, name string)
}

type UserService struct {
	m      *DBModel
	mb     common.MessageProducer
	tokens *TokenManager
	n      ActionBroadcaster
	logger *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   Password  `json:"-"`
	Role       Role      `json:"role"`
	Avatar     string    `json:"avatar"`
	GoogleID   *string   `json:"-"`
	FacebookID *string   `json:"-"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int       `json:"-"`

	refreshHash []byte
}

func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanModify reports whether u may mutate a resource owned by ownerID.
func (u *User) CanModify(ownerID uuid.UUID) bool {
	if u == nil || u.IsAnonymous() {
		return false
	}
	return u.IsAdmin() || u.ID == ownerID
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// AuthResult is returned by every operation that signs a user in.
type AuthResult struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest lists the fields a user may change on their own account. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

// AdminUpdateUserRequest lists the fields an admin may change on any account. Nil fields are left untouched.
type AdminUpdateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Page     common.Page
}

// UserSummary is a user row decorated with content counts, used by the admin listing.
type UserSummary struct {
	User
	PostCount    int `json:"postCount"`
	CommentCount int `json:"commentCount"`
}

type UserStats struct {
	TotalPosts     int   `json:"totalPosts"`
	PublishedPosts int   `json:"publishedPosts"`
	DraftPosts     int   `json:"draftPosts"`
	TotalComments  int   `json:"totalComments"`
	TotalViews     int64 `json:"totalViews"`
}

// ExternalIdentity is what a third-party provider tells us about the signed-in account.
type ExternalIdentity struct {
	Provider Provider
	Subject  string
	Email    string
	Name     string
	Avatar   string
}

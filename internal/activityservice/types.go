package activityservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

type Action string

const (
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionRegister      Action = "register"
	ActionCreatePost    Action = "create_post"
	ActionUpdatePost    Action = "update_post"
	ActionDeletePost    Action = "delete_post"
	ActionCreateComment Action = "create_comment"
	ActionUpdateComment Action = "update_comment"
	ActionDeleteComment Action = "delete_comment"
	ActionViewPost      Action = "view_post"
	ActionAdmin         Action = "admin_action"
	ActionOther         Action = "other"
)

var Actions = []Action{
	ActionLogin, ActionLogout, ActionRegister, ActionCreatePost, ActionUpdatePost, ActionDeletePost,
	ActionCreateComment, ActionUpdateComment, ActionDeleteComment, ActionViewPost, ActionAdmin, ActionOther,
}

type ResourceType string

const (
	ResourceBlog    ResourceType = "blog"
	ResourceComment ResourceType = "comment"
	ResourceUser    ResourceType = "user"
	ResourceAuth    ResourceType = "auth"
	ResourceOther   ResourceType = "other"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Actor is the user behind an activity, as far as the users table still knows them.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

type Activity struct {
	ID           uuid.UUID    `json:"id"`
	User         Actor        `json:"user"`
	Action       Action       `json:"action"`
	ResourceType ResourceType `json:"resourceType"`
	ResourceID   *uuid.UUID   `json:"resourceId,omitempty"`
	Details      string       `json:"details"`
	IPAddress    string       `json:"ipAddress"`
	UserAgent    string       `json:"userAgent"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type ActivityModel struct {
	db *sql.DB
}

type ActivityService struct {
	m *ActivityModel
}

type Filter struct {
	UserID uuid.UUID
	Action Action
	Page   common.Page
}

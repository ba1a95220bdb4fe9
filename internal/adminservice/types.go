package adminservice

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

const (
	topAuthorsLimit     = 5
	recentActivityLimit = 10
	recentContentLimit  = 5
	statsMonths         = 6
)

type StatsModel struct {
	db *sql.DB
}

// AdminService backs the admin area. It reads aggregate statistics directly and delegates moderation to the
// owning services.
type AdminService struct {
	m        *StatsModel
	users    *userservice.UserService
	blogs    *blogservice.BlogService
	comments *commentservice.CommentService
	activity *activityservice.ActivityService
	cache    *common.Cache
}

type Overview struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveUsers    int `json:"activeUsers"`
	TotalBlogs     int `json:"totalBlogs"`
	PublishedBlogs int `json:"publishedBlogs"`
	DraftBlogs     int `json:"draftBlogs"`
	DeletedBlogs   int `json:"deletedBlogs"`
	TotalComments  int `json:"totalComments"`
}

type Today struct {
	Users    int `json:"users"`
	Blogs    int `json:"blogs"`
	Comments int `json:"comments"`
}

type AuthorStat struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	PostCount int       `json:"postCount"`
	Views     int64     `json:"views"`
}

type MonthStat struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

type Dashboard struct {
	Overview         Overview                    `json:"overview"`
	Today            Today                       `json:"today"`
	TopAuthors       []AuthorStat                `json:"topAuthors"`
	RecentActivities []*activityservice.Activity `json:"recentActivities"`
	MonthlyBlogStats []MonthStat                 `json:"monthlyBlogStats"`
	CacheStats       common.CacheStats           `json:"cacheStats"`
}

// UserDetail is an account with its content statistics and latest contributions.
type UserDetail struct {
	User           *userservice.User         `json:"user"`
	Stats          *userservice.UserStats    `json:"stats"`
	RecentPosts    []*blogservice.Blog       `json:"recentPosts"`
	RecentComments []*commentservice.Comment `json:"recentComments"`
}

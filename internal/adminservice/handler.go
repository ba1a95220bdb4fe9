package adminservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func NewAdminService(db *sql.DB, users *userservice.UserService, blogs *blogservice.BlogService, comments *commentservice.CommentService, activity *activityservice.ActivityService, c *common.Cache) *AdminService {
	return &AdminService{
		m:        newStatsModel(db),
		users:    users,
		blogs:    blogs,
		comments: comments,
		activity: activity,
		cache:    c,
	}
}

// NewPage applies the admin user listing defaults to the requested page and limit.
func NewPage(page, limit int) common.Page {
	return common.NewPage(page, limit, defaultPageLimit, maxPageLimit)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dashboard summarizes the site: totals, today's activity, the most prolific authors, the latest audit entries and
// the number of posts created per month over the last six months.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := time.Now()

	overview, today, err := s.m.counts(ctx, startOfDay(now))
	if err != nil {
		return nil, err
	}

	authors, err := s.m.topAuthors(ctx, topAuthorsLimit)
	if err != nil {
		return nil, err
	}

	recent, err := s.activity.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	y, m, _ := now.Date()
	monthly, err := s.m.monthly(ctx, time.Date(y, m-(statsMonths-1), 1, 0, 0, 0, 0, now.Location()))
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Overview:         overview,
		Today:            today,
		TopAuthors:       authors,
		RecentActivities: recent,
		MonthlyBlogStats: monthly,
		CacheStats:       s.cache.Stats(),
	}, nil
}

func (s *AdminService) ListUsers(ctx context.Context, f userservice.UserFilter) ([]*userservice.UserSummary, *common.Pagination, error) {
	return s.users.ListUsers(ctx, f)
}

// GetUser returns an account with its statistics, its five newest live posts and its five newest comments.
func (s *AdminService) GetUser(ctx context.Context, admin *userservice.User, id uuid.UUID) (*UserDetail, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.users.GetUserStats(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, _, err := s.blogs.ListBlogs(ctx, admin, blogservice.BlogFilter{
		Author: id.String(),
		Page:   blogservice.NewPage(1, recentContentLimit),
	})
	if err != nil {
		return nil, err
	}

	comments, _, err := s.comments.ListComments(ctx, commentservice.CommentFilter{
		AuthorID: id,
		Page:     commentservice.NewPage(1, recentContentLimit),
	})
	if err != nil {
		return nil, err
	}

	return &UserDetail{User: u, Stats: stats, RecentPosts: posts, RecentComments: comments}, nil
}

// UpdateUser changes an account's profile, role or active flag. Cached listings embed author fields so they are
// dropped.
func (s *AdminService) UpdateUser(ctx context.Context, id uuid.UUID, req *userservice.AdminUpdateUserRequest) (*userservice.User, error) {
	u, err := s.users.AdminUpdateUser(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(common.CacheKeyBlogs())

	return u, nil
}

// DeleteUser removes an account and soft-deletes its posts.
func (s *AdminService) DeleteUser(ctx context.Context, admin *userservice.User, id uuid.UUID) error {
	if err := s.users.DeleteUser(ctx, admin, id); err != nil {
		return err
	}

	s.cache.Invalidate(common.CacheKeyBlogs())

	return nil
}

// ListBlogs lists posts of every status. Soft-deleted posts are included unless f.Deleted narrows the listing.
func (s *AdminService) ListBlogs(ctx context.Context, admin *userservice.User, f blogservice.BlogFilter) ([]*blogservice.Blog, *common.Pagination, error) {
	if !admin.IsAdmin() {
		return nil, nil, common.ErrForbidden
	}

	f.IncludeDeleted = f.Deleted == nil

	return s.blogs.ListBlogs(ctx, admin, f)
}

func (s *AdminService) RestoreBlog(ctx context.Context, admin *userservice.User, idOrSlug string) (*blogservice.Blog, error) {
	return s.blogs.RestoreBlog(ctx, admin, idOrSlug)
}

func (s *AdminService) DeleteBlogPermanently(ctx context.Context, admin *userservice.User, idOrSlug string) error {
	return s.blogs.DeleteBlogPermanently(ctx, admin, idOrSlug)
}

func (s *AdminService) ListComments(ctx context.Context, f commentservice.CommentFilter) ([]*commentservice.Comment, *common.Pagination, error) {
	return s.comments.ListComments(ctx, f)
}

func (s *AdminService) ListActivity(ctx context.Context, f activityservice.Filter) ([]*activityservice.Activity, *common.Pagination, error) {
	return s.activity.List(ctx, f)
}

// ClearCache drops every cached response and returns the statistics from just before the flush.
func (s *AdminService) ClearCache() common.CacheStats {
	stats := s.cache.Stats()
	s.cache.Flush()
	return stats
}

func (s *AdminService) CacheStats() common.CacheStats {
	return s.cache.Stats()
}

package adminservice

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

type silentNotifier struct{}

func (silentNotifier) EmitNewBlog(any, string) {}
func (silentNotifier) EmitBlogUpdate(uuid.UUID, any, string) {}
func (silentNotifier) EmitBlogDelete(uuid.UUID) {}
func (silentNotifier) EmitNewComment(uuid.UUID, any) {}
func (silentNotifier) EmitCommentUpdate(uuid.UUID, any) {}
func (silentNotifier) EmitCommentDelete(uuid.UUID, uuid.UUID) {}
func (silentNotifier) NotifyUser(uuid.UUID, any) {}
func (silentNotifier) BroadcastUserAction(string, uuid.UUID, string, string) {}

type testEnv struct {
	s        *AdminService
	db       *sql.DB
	cache    *common.Cache
	blogs    *blogservice.BlogService
	comments *commentservice.CommentService
	activity *activityservice.ActivityService
}

func setupTestEnvironment(t *testing.T) (*testEnv, func()) {
	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	var n silentNotifier
	tokens := userservice.NewTokenManager("access-secret", "refresh-secret", time.Hour, time.Hour)
	users := userservice.NewUserService(db, nil, tokens, n, logger)
	blogs := blogservice.NewBlogService(db, cache, n)
	comments := commentservice.NewCommentService(db, blogs, cache, n)
	activity := activityservice.NewActivityService(db)

	env := &testEnv{
		s:        NewAdminService(db, users, blogs, comments, activity, cache),
		db:       db,
		cache:    cache,
		blogs:    blogs,
		comments: comments,
		activity: activity,
	}

	cleanup := func() {
		for _, table := range []string{"activity_logs", "comments", "blogs", "users"} {
			_, err := db.Exec("DELETE FROM " + table)
			assert.NoError(t, err)
		}
		cache.Flush()
	}

	return env, cleanup
}

func setupTestUser(t *testing.T, db *sql.DB, username string, role userservice.Role) *userservice.User {
	t.Helper()

	u := &userservice.User{Username: username, Name: username, Email: username + "@example.com", Role: role, IsActive: true}

	query := `
		INSERT INTO users (username, name, email, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := db.QueryRow(query, u.Username, u.Name, u.Email, u.Role).Scan(&u.ID)
	require.NoError(t, err)

	return u
}

func createPost(t *testing.T, env *testEnv, author *userservice.User, title string, status blogservice.Status) *blogservice.Blog {
	t.Helper()

	b, err := env.blogs.CreateBlog(context.Background(), author, &blogservice.CreateBlogRequest{
		Title:   title,
		Content: "<p>Body of " + title + "</p>",
		Status:  status,
	})
	require.NoError(t, err)

	return b
}

func TestAdminService(t *testing.T) {
	env, cleanup := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("Dashboard", func(t *testing.T) {
		defer cleanup()

		setupTestUser(t, env.db, "admin", userservice.RoleAdmin)
		prolific := setupTestUser(t, env.db, "prolific", userservice.RoleUser)
		quiet := setupTestUser(t, env.db, "quiet", userservice.RoleUser)

		_, err := env.db.Exec(`UPDATE users SET is_active = false WHERE id = $1`, quiet.ID)
		require.NoError(t, err)

		first := createPost(t, env, prolific, "First post", blogservice.StatusPublished)
		createPost(t, env, prolific, "Second post", blogservice.StatusDraft)
		doomed := createPost(t, env, quiet, "Doomed post", blogservice.StatusPublished)

		_, err = env.blogs.DeleteBlog(ctx, quiet, doomed.ID.String())
		require.NoError(t, err)

		_, err = env.comments.CreateComment(ctx, quiet, first.Slug, &commentservice.CreateCommentRequest{Content: "Nice"})
		require.NoError(t, err)

		require.NoError(t, env.activity.Log(ctx, &activityservice.Activity{
			User:         activityservice.Actor{ID: prolific.ID},
			Action:       activityservice.ActionCreatePost,
			ResourceType: activityservice.ResourceBlog,
			ResourceID:   &first.ID,
		}))

		env.cache.Set(common.CacheKeyBlogs(), "cached")

		d, err := env.s.Dashboard(ctx)
		require.NoError(t, err)

		assert.Equal(t, Overview{
			TotalUsers:     3,
			ActiveUsers:    2,
			TotalBlogs:     2,
			PublishedBlogs: 1,
			DraftBlogs:     1,
			DeletedBlogs:   1,
			TotalComments:  1,
		}, d.Overview)
		assert.Equal(t, Today{Users: 3, Blogs: 2, Comments: 1}, d.Today)

		require.Len(t, d.TopAuthors, 1)
		assert.Equal(t, prolific.ID, d.TopAuthors[0].ID)
		assert.Equal(t, 2, d.TopAuthors[0].PostCount)

		require.Len(t, d.RecentActivities, 1)
		assert.Equal(t, "prolific", d.RecentActivities[0].User.Username)

		now := time.Now()
		require.Len(t, d.MonthlyBlogStats, 1)
		assert.Equal(t, MonthStat{Year: now.Year(), Month: int(now.Month()), Count: 2}, d.MonthlyBlogStats[0])

		assert.Equal(t, 1, d.CacheStats.Keys)
	})

	t.Run("GetUser", func(t *testing.T) {
		defer cleanup()

		admin := setupTestUser(t, env.db, "admin", userservice.RoleAdmin)
		author := setupTestUser(t, env.db, "author", userservice.RoleUser)

		for _, title := range []string{"One", "Two", "Three", "Four", "Five", "Six"} {
			createPost(t, env, author, "Post "+title, blogservice.StatusPublished)
		}
		draft := createPost(t, env, author, "Hidden draft", blogservice.StatusDraft)
		gone := createPost(t, env, author, "Gone", blogservice.StatusPublished)
		_, err := env.blogs.DeleteBlog(ctx, author, gone.ID.String())
		require.NoError(t, err)

		_, err = env.comments.CreateComment(ctx, author, draft.ID.String(), &commentservice.CreateCommentRequest{Content: "Note to self"})
		require.NoError(t, err)

		detail, err := env.s.GetUser(ctx, admin, author.ID)
		require.NoError(t, err)

		assert.Equal(t, author.ID, detail.User.ID)
		assert.Equal(t, 7, detail.Stats.TotalPosts)
		assert.Equal(t, 1, detail.Stats.DraftPosts)
		assert.Equal(t, 1, detail.Stats.TotalComments)

		require.Len(t, detail.RecentPosts, 5)
		assert.Equal(t, draft.ID, detail.RecentPosts[0].ID)
		for _, p := range detail.RecentPosts {
			assert.False(t, p.IsDeleted)
		}

		require.Len(t, detail.RecentComments, 1)
		require.NotNil(t, detail.RecentComments[0].Post)
		assert.Equal(t, "Hidden draft", detail.RecentComments[0].Post.Title)

		_, err = env.s.GetUser(ctx, admin, uuid.New())
		assert.ErrorIs(t, err, common.ErrRecordNotFound)
	})

	t.Run("UpdateAndDeleteUserInvalidateBlogs", func(t *testing.T) {
		defer cleanup()

		admin := setupTestUser(t, env.db, "admin", userservice.RoleAdmin)
		author := setupTestUser(t, env.db, "author", userservice.RoleUser)
		post := createPost(t, env, author, "Owned post", blogservice.StatusPublished)

		env.cache.Set(common.CacheKeyRequest("/v1/blogs?page=1"), "cached")

		name := "Renamed"
		u, err := env.s.UpdateUser(ctx, author.ID, &userservice.AdminUpdateUserRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", u.Name)

		_, ok := env.cache.Get(common.CacheKeyRequest("/v1/blogs?page=1"))
		assert.False(t, ok)

		assert.ErrorIs(t, env.s.DeleteUser(ctx, admin, admin.ID), userservice.ErrSelfDeletion)

		env.cache.Set(common.CacheKeyBlog(post.Slug), "cached")
		require.NoError(t, env.s.DeleteUser(ctx, admin, author.ID))

		_, ok = env.cache.Get(common.CacheKeyBlog(post.Slug))
		assert.False(t, ok)

		b, err := env.blogs.FindBlog(ctx, post.ID.String())
		require.NoError(t, err)
		assert.True(t, b.IsDeleted)
	})

	t.Run("ListBlogs", func(t *testing.T) {
		defer cleanup()

		admin := setupTestUser(t, env.db, "admin", userservice.RoleAdmin)
		author := setupTestUser(t, env.db, "author", userservice.RoleUser)

		createPost(t, env, author, "Live", blogservice.StatusPublished)
		createPost(t, env, author, "Draft", blogservice.StatusDraft)
		gone := createPost(t, env, author, "Gone", blogservice.StatusPublished)
		_, err := env.blogs.DeleteBlog(ctx, author, gone.ID.String())
		require.NoError(t, err)

		deleted := true
		live := false

		testCases := []struct {
			name          string
			actor         *userservice.User
			deleted       *bool
			expectedTotal int
			expectedErr   error
		}{
			{name: "everything by default", actor: admin, expectedTotal: 3},
			{name: "only deleted", actor: admin, deleted: &deleted, expectedTotal: 1},
			{name: "only live", actor: admin, deleted: &live, expectedTotal: 2},
			{name: "not an admin", actor: author, expectedErr: common.ErrForbidden},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, p, err := env.s.ListBlogs(ctx, tc.actor, blogservice.BlogFilter{Deleted: tc.deleted, Page: blogservice.NewPage(1, 0)})
				if tc.expectedErr != nil {
					assert.Equal(t, tc.expectedErr, err)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, tc.expectedTotal, p.Total)
			})
		}
	})

	t.Run("Cache", func(t *testing.T) {
		defer cleanup()

		env.cache.Set(common.CacheKeyBlogs(), "a")
		env.cache.Set(common.CacheKeyPostComments("x"), "b")
		env.cache.Get(common.CacheKeyBlogs())

		stats := env.s.CacheStats()
		assert.Equal(t, 2, stats.Keys)

		before := env.s.ClearCache()
		assert.Equal(t, 2, before.Keys)
		assert.Equal(t, 0, env.s.CacheStats().Keys)
	})
}

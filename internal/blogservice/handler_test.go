package blogservice

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) EmitNewBlog(blog any, title string) {
	m.Called(blog, title)
}

func (m *mockNotifier) EmitBlogUpdate(blogID uuid.UUID, blog any, title string) {
	m.Called(blogID, blog, title)
}

func (m *mockNotifier) EmitBlogDelete(blogID uuid.UUID) {
	m.Called(blogID)
}

// setupTestUser inserts a user row directly and returns it.
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

func setupTestEnvironment(t *testing.T) (*BlogService, *sql.DB, *common.Cache, *mockNotifier, func()) {
	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	n := new(mockNotifier)
	n.On("EmitNewBlog", mock.Anything, mock.Anything).Return()
	n.On("EmitBlogUpdate", mock.Anything, mock.Anything, mock.Anything).Return()
	n.On("EmitBlogDelete", mock.Anything).Return()

	cleanup := func() {
		for _, table := range []string{"comments", "blogs", "users"} {
			_, err := db.Exec("DELETE FROM " + table)
			assert.NoError(t, err)
		}
		cache.Flush()
	}

	return NewBlogService(db, cache, n), db, cache, n, cleanup
}

func newPost(title string) *CreateBlogRequest {
	return &CreateBlogRequest{
		Title:   title,
		Content: "<p>This is the body of " + title + "</p>",
		Tags:    []string{"Go", "testing"},
	}
}

func TestBlogService(t *testing.T) {
	s, db, cache, n, cleanup := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("CreateBlog", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		testCases := []struct {
			name        string
			req         *CreateBlogRequest
			expectedErr error
		}{
			{
				name: "valid blog",
				req:  newPost("Hello World"),
			},
			{
				name:        "empty title",
				req:         &CreateBlogRequest{Content: "This is a test blog."},
				expectedErr: common.ValidationError{Errors: map[string]string{"title": "must be provided"}},
			},
			{
				name:        "short content",
				req:         &CreateBlogRequest{Title: "Short", Content: "tiny"},
				expectedErr: common.ValidationError{Errors: map[string]string{"content": "must be at least 10 characters long"}},
			},
			{
				name:        "content that sanitizes to nothing",
				req:         &CreateBlogRequest{Title: "Script", Content: "<script>alert('hello there')</script>"},
				expectedErr: common.ValidationError{Errors: map[string]string{"content": "must be provided"}},
			},
			{
				name:        "invalid status",
				req:         &CreateBlogRequest{Title: "Status", Content: "This is a test blog.", Status: "archived"},
				expectedErr: common.ValidationError{Errors: map[string]string{"status": "must be either draft or published"}},
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				b, err := s.CreateBlog(ctx, author, tc.req)
				if tc.expectedErr != nil {
					assert.Equal(t, tc.expectedErr, err)
					return
				}

				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, b.ID)
				assert.Equal(t, "hello-world", b.Slug)
				assert.Equal(t, StatusPublished, b.Status)
				assert.Equal(t, "This is the body of Hello World", b.Excerpt)
				assert.Equal(t, []string{"go", "testing"}, b.Tags)
				assert.Equal(t, author.ID, b.Author.ID)
				n.AssertCalled(t, "EmitNewBlog", b, "Hello World")
			})
		}
	})

	t.Run("CreateBlogSlugCollision", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		first, err := s.CreateBlog(ctx, author, newPost("Same Title"))
		require.NoError(t, err)

		second, err := s.CreateBlog(ctx, author, newPost("Same Title"))
		require.NoError(t, err)

		assert.Equal(t, "same-title", first.Slug)
		assert.Regexp(t, `^same-title-\d+$`, second.Slug)
	})

	t.Run("CreateDraftIsNotAnnounced", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		req := newPost("Quiet Draft")
		req.Status = StatusDraft

		b, err := s.CreateBlog(ctx, author, req)
		require.NoError(t, err)
		n.AssertNotCalled(t, "EmitNewBlog", b, "Quiet Draft")
	})

	t.Run("GetBlogByIDAndSlug", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		created, err := s.CreateBlog(ctx, author, newPost("Views Count"))
		require.NoError(t, err)

		byID, err := s.GetBlog(ctx, userservice.AnonymousUser, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, int64(1), byID.Views)

		bySlug, err := s.GetBlog(ctx, userservice.AnonymousUser, created.Slug)
		require.NoError(t, err)
		assert.Equal(t, int64(2), bySlug.Views)

		assert.Equal(t, byID.ID, bySlug.ID)
		assert.Equal(t, byID.Title, bySlug.Title)
		assert.Equal(t, byID.Content, bySlug.Content)
		assert.Equal(t, byID.Slug, bySlug.Slug)

		var views int64
		require.NoError(t, db.QueryRow("SELECT views FROM blogs WHERE id = $1", created.ID).Scan(&views))
		assert.Equal(t, int64(2), views)

		_, err = s.GetBlog(ctx, userservice.AnonymousUser, uuid.NewString())
		assert.ErrorIs(t, err, common.ErrRecordNotFound)

		_, err = s.GetBlog(ctx, userservice.AnonymousUser, "Not A Slug")
		assert.ErrorIs(t, err, common.ErrRecordNotFound)
	})

	t.Run("DraftVisibility", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)
		other := setupTestUser(t, db, "other", userservice.RoleUser)
		admin := setupTestUser(t, db, "admin", userservice.RoleAdmin)

		req := newPost("Secret Draft")
		req.Status = StatusDraft
		draft, err := s.CreateBlog(ctx, author, req)
		require.NoError(t, err)

		testCases := []struct {
			name        string
			viewer      *userservice.User
			expectedErr error
		}{
			{name: "anonymous", viewer: userservice.AnonymousUser, expectedErr: common.ErrForbidden},
			{name: "other user", viewer: other, expectedErr: common.ErrForbidden},
			{name: "author", viewer: author},
			{name: "admin", viewer: admin},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := s.GetBlog(ctx, tc.viewer, draft.Slug)
				assert.Equal(t, tc.expectedErr, err)
			})
		}
	})

	t.Run("ListBlogs", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)
		other := setupTestUser(t, db, "other", userservice.RoleUser)

		for _, title := range []string{"Go Concurrency", "Rust Ownership", "Go Generics"} {
			_, err := s.CreateBlog(ctx, author, newPost(title))
			require.NoError(t, err)
		}

		draft := newPost("Go Draft")
		draft.Status = StatusDraft
		_, err := s.CreateBlog(ctx, author, draft)
		require.NoError(t, err)

		page := common.NewPage(1, 2, 10, 100)

		testCases := []struct {
			name     string
			viewer   *userservice.User
			filter   BlogFilter
			expected int
		}{
			{name: "anonymous sees published", viewer: userservice.AnonymousUser, filter: BlogFilter{Page: page}, expected: 3},
			{name: "search", viewer: userservice.AnonymousUser, filter: BlogFilter{Search: "go ", Page: page}, expected: 2},
			{name: "tag", viewer: userservice.AnonymousUser, filter: BlogFilter{Tag: "GO", Page: page}, expected: 3},
			{name: "draft filter forced to published", viewer: other, filter: BlogFilter{Status: "draft", Page: page}, expected: 0},
			{name: "author sees own drafts", viewer: author, filter: BlogFilter{Author: author.ID.String(), Status: "draft", Page: page}, expected: 1},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				blogs, p, err := s.ListBlogs(ctx, tc.viewer, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, p.Total)
				assert.LessOrEqual(t, len(blogs), 2)
			})
		}

		blogs, p, err := s.ListBlogs(ctx, userservice.AnonymousUser, BlogFilter{SortBy: "title", Order: "asc", Page: page})
		require.NoError(t, err)
		assert.Equal(t, 2, p.Pages)
		require.Len(t, blogs, 2)
		assert.Equal(t, "Go Concurrency", blogs[0].Title)
		assert.Equal(t, "Go Generics", blogs[1].Title)

		_, _, err = s.ListBlogs(ctx, userservice.AnonymousUser, BlogFilter{Author: "nope", SortBy: "rank", Page: page})
		assert.Equal(t, common.ValidationError{Errors: map[string]string{
			"author": "must be a valid id",
			"sortBy": "must be one of createdAt, updatedAt, views or title",
		}}, err)

		mine, p, err := s.ListMyBlogs(ctx, author, BlogFilter{Page: page})
		require.NoError(t, err)
		assert.Equal(t, 4, p.Total)
		assert.Len(t, mine, 2)

		beyond := common.NewPage(5, 2, 10, 100)

		blogs, p, err = s.ListBlogs(ctx, userservice.AnonymousUser, BlogFilter{Page: beyond})
		require.NoError(t, err)
		assert.Empty(t, blogs)
		assert.Equal(t, &common.Pagination{Total: 3, Page: 5, Limit: 2, Pages: 2}, p)

		blogs, p, err = s.ListBlogs(ctx, userservice.AnonymousUser, BlogFilter{Search: "go ", Page: beyond})
		require.NoError(t, err)
		assert.Empty(t, blogs)
		assert.Equal(t, 2, p.Total)
	})

	t.Run("TrendingBlogs", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		cold, err := s.CreateBlog(ctx, author, newPost("Cold Post"))
		require.NoError(t, err)
		hot, err := s.CreateBlog(ctx, author, newPost("Hot Post"))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := s.GetBlog(ctx, userservice.AnonymousUser, hot.Slug)
			require.NoError(t, err)
		}

		blogs, err := s.TrendingBlogs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, blogs, 2)
		assert.Equal(t, hot.ID, blogs[0].ID)
		assert.Equal(t, cold.ID, blogs[1].ID)
	})

	t.Run("UpdateBlog", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)
		other := setupTestUser(t, db, "other", userservice.RoleUser)
		admin := setupTestUser(t, db, "admin", userservice.RoleAdmin)

		b, err := s.CreateBlog(ctx, author, newPost("Original Title"))
		require.NoError(t, err)

		title := "Hijacked"
		_, err = s.UpdateBlog(ctx, other, b.ID.String(), &UpdateBlogRequest{Title: &title})
		assert.Equal(t, common.ErrForbidden, err)

		unchanged, err := s.FindBlog(ctx, b.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Original Title", unchanged.Title)
		assert.Equal(t, b.Version, unchanged.Version)

		title = "Renamed Title"
		status := StatusDraft
		updated, err := s.UpdateBlog(ctx, author, b.Slug, &UpdateBlogRequest{Title: &title, Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "renamed-title", updated.Slug)
		assert.Equal(t, StatusDraft, updated.Status)
		assert.Equal(t, b.Version+1, updated.Version)
		n.AssertCalled(t, "EmitBlogUpdate", b.ID, updated, "Renamed Title")

		tags := []string{"Admin"}
		byAdmin, err := s.UpdateBlog(ctx, admin, updated.ID.String(), &UpdateBlogRequest{Tags: &tags})
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, byAdmin.Tags)

		empty := ""
		_, err = s.UpdateBlog(ctx, author, updated.ID.String(), &UpdateBlogRequest{Title: &empty})
		assert.Equal(t, common.ValidationError{Errors: map[string]string{"title": "must be provided"}}, err)
	})

	t.Run("CreateInvalidatesList", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)

		key := common.CacheKeyRequest("/v1/blogs?page=1")
		cache.Set(key, []byte(`{"success":true,"data":[]}`))
		detail := common.CacheKeyRequest("/v1/blogs/trending")
		cache.Set(detail, []byte(`{"success":true,"data":[]}`))

		_, err := s.CreateBlog(ctx, author, newPost("Post A"))
		require.NoError(t, err)

		_, found := cache.Get(key)
		assert.False(t, found)
		_, found = cache.Get(detail)
		assert.False(t, found)
	})

	t.Run("MutationsInvalidatePostKeys", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)
		admin := setupTestUser(t, db, "admin", userservice.RoleAdmin)

		b, err := s.CreateBlog(ctx, author, newPost("Cached Post"))
		require.NoError(t, err)

		postKeys := func(idents ...string) []string {
			var keys []string
			for _, ident := range idents {
				keys = append(keys,
					common.CacheKeyRequest("/v1/comments/post/"+ident+"?page=1"),
					common.CacheKeyRequest("/v1/blogs/"+ident),
				)
			}
			for _, k := range keys {
				cache.Set(k, []byte("{}"))
			}
			return keys
		}

		assertGone := func(t *testing.T, keys []string) {
			t.Helper()
			for _, k := range keys {
				_, found := cache.Get(k)
				assert.False(t, found, k)
			}
		}

		keys := postKeys(b.ID.String(), b.Slug)
		title := "Cached Post Renamed"
		updated, err := s.UpdateBlog(ctx, author, b.Slug, &UpdateBlogRequest{Title: &title})
		require.NoError(t, err)
		assertGone(t, keys)

		keys = postKeys(b.ID.String(), updated.Slug)
		_, err = s.DeleteBlog(ctx, author, updated.Slug)
		require.NoError(t, err)
		assertGone(t, keys)

		keys = postKeys(b.ID.String(), updated.Slug)
		_, err = s.RestoreBlog(ctx, admin, b.ID.String())
		require.NoError(t, err)
		assertGone(t, keys)
	})

	t.Run("DeleteRestoreAndPurge", func(t *testing.T) {
		defer cleanup()

		author := setupTestUser(t, db, "author", userservice.RoleUser)
		other := setupTestUser(t, db, "other", userservice.RoleUser)
		admin := setupTestUser(t, db, "admin", userservice.RoleAdmin)

		b, err := s.CreateBlog(ctx, author, newPost("Short Lived"))
		require.NoError(t, err)

		_, err = db.Exec(`INSERT INTO comments (content, user_id, post_id) VALUES ('first', $1, $2)`, other.ID, b.ID)
		require.NoError(t, err)

		_, err = s.DeleteBlog(ctx, other, b.ID.String())
		assert.Equal(t, common.ErrForbidden, err)

		deleted, err := s.DeleteBlog(ctx, author, b.ID.String())
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted)
		require.NotNil(t, deleted.DeletedAt)
		n.AssertCalled(t, "EmitBlogDelete", b.ID)

		_, err = s.GetBlog(ctx, admin, b.ID.String())
		assert.ErrorIs(t, err, common.ErrRecordNotFound)

		row, err := s.FindBlog(ctx, b.ID.String())
		require.NoError(t, err)
		assert.True(t, row.IsDeleted)
		assert.NotNil(t, row.DeletedAt)

		isDeleted := true
		listed, _, err := s.ListBlogs(ctx, admin, BlogFilter{Deleted: &isDeleted, Page: common.NewPage(1, 10, 10, 100)})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, b.ID, listed[0].ID)

		_, err = s.RestoreBlog(ctx, author, b.ID.String())
		assert.Equal(t, common.ErrForbidden, err)

		restored, err := s.RestoreBlog(ctx, admin, b.ID.String())
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted)
		assert.Nil(t, restored.DeletedAt)

		err = s.DeleteBlogPermanently(ctx, author, b.ID.String())
		assert.Equal(t, common.ErrForbidden, err)

		require.NoError(t, s.DeleteBlogPermanently(ctx, admin, b.ID.String()))

		_, err = s.FindBlog(ctx, b.ID.String())
		assert.ErrorIs(t, err, common.ErrRecordNotFound)

		var comments int
		require.NoError(t, db.QueryRow("SELECT count(*) FROM comments WHERE post_id = $1", b.ID).Scan(&comments))
		assert.Zero(t, comments)
	})
}

package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func NewBlogService(db *sql.DB, c *common.Cache, n Notifier) *BlogService {
	return &BlogService{m: newBlogModel(db), c: c, n: n}
}

// lookup resolves an id or slug. Malformed identifiers are reported as not found.
func (s *BlogService) lookup(ctx context.Context, idOrSlug string) (*Blog, error) {
	ident, ok := parseIdentifier(idOrSlug)
	if !ok {
		return nil, ErrNotFound
	}

	return s.m.get(ctx, ident)
}

// invalidate drops the listings and every key of the post under its id and each of slugs. The post's own slug is
// always included.
func (s *BlogService) invalidate(b *Blog, slugs ...string) {
	patterns := []string{common.CacheKeyBlogs()}
	for _, ident := range append([]string{b.ID.String(), b.Slug}, slugs...) {
		patterns = append(patterns, common.CacheKeyBlog(ident), common.CacheKeyPostComments(ident))
	}
	s.c.Invalidate(patterns...)
}

// uniqueSlug derives a slug for title that no other row uses.
func (s *BlogService) uniqueSlug(ctx context.Context, title string, except uuid.UUID) (string, error) {
	slug := makeSlug(title)

	taken, err := s.m.slugTaken(ctx, slug, except)
	if err != nil {
		return "", err
	}

	if taken {
		slug = withSuffix(slug, time.Now())
	}

	return slug, nil
}

// CreateBlog stores a new post owned by author. The status defaults to published and only published posts are
// announced to connected clients.
func (s *BlogService) CreateBlog(ctx context.Context, author *userservice.User, req *CreateBlogRequest) (*Blog, error) {
	if author == nil || author.IsAnonymous() {
		return nil, common.ErrForbidden
	}

	b := &Blog{
		Title:      strings.TrimSpace(req.Title),
		Content:    sanitizeContent(req.Content),
		Excerpt:    strings.TrimSpace(req.Excerpt),
		CoverImage: strings.TrimSpace(req.CoverImage),
		Tags:       normalizeTags(req.Tags),
		Status:     req.Status,
		Author: Author{
			ID:       author.ID,
			Username: author.Username,
			Name:     author.Name,
			Avatar:   author.Avatar,
		},
	}

	if b.Status == "" {
		b.Status = StatusPublished
	}

	v := common.NewValidator()
	validateTitle(v, b.Title)
	validateContent(v, b.Content)
	validateExcerpt(v, b.Excerpt)
	validateCoverImage(v, b.CoverImage)
	validateTags(v, b.Tags)
	validateStatus(v, b.Status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if b.Excerpt == "" {
		b.Excerpt = makeExcerpt(b.Content, excerptLength)
	}

	slug, err := s.uniqueSlug(ctx, b.Title, uuid.Nil)
	if err != nil {
		return nil, err
	}
	b.Slug = slug

	err = s.m.insert(ctx, b)
	if errors.Is(err, ErrDuplicateSlug) {
		// lost a race with a concurrent insert of the same slug
		b.Slug = withSuffix(makeSlug(b.Title), time.Now())
		err = s.m.insert(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(b)

	if b.Status == StatusPublished {
		s.n.EmitNewBlog(b, b.Title)
	}

	return b, nil
}

// GetBlog returns a post by id or slug and records the view. Soft-deleted posts are not found, drafts are visible
// to their author and to admins only.
func (s *BlogService) GetBlog(ctx context.Context, viewer *userservice.User, idOrSlug string) (*Blog, error) {
	b, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if b.IsDeleted {
		return nil, ErrNotFound
	}

	if b.Status == StatusDraft && !viewer.CanModify(b.Author.ID) {
		return nil, common.ErrForbidden
	}

	views, err := s.m.incrementViews(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Views = views

	return b, nil
}

// FindBlog returns a post by id or slug without visibility checks or view counting, deleted rows included.
func (s *BlogService) FindBlog(ctx context.Context, idOrSlug string) (*Blog, error) {
	return s.lookup(ctx, idOrSlug)
}

// ListBlogs applies f as seen by viewer. Anyone who is not an admin and not listing their own posts only sees
// published posts, and only admins can see soft-deleted posts.
func (s *BlogService) ListBlogs(ctx context.Context, viewer *userservice.User, f BlogFilter) ([]*Blog, *common.Pagination, error) {
	v := common.NewValidator()

	q := listQuery{
		status:  Status(f.Status),
		tag:     strings.ToLower(strings.TrimSpace(f.Tag)),
		search:  strings.TrimSpace(f.Search),
		orderBy: f.SortBy,
		desc:    !strings.EqualFold(f.Order, "asc"),
		page:    f.Page,
	}

	if f.Status != "" {
		validateStatus(v, q.status)
	}
	if f.SortBy != "" {
		_, ok := sortColumns[f.SortBy]
		v.Check(ok, "sortBy", "must be one of createdAt, updatedAt, views or title")
	}
	if f.Order != "" {
		v.Check(common.PermittedValue(strings.ToLower(f.Order), "asc", "desc"), "order", "must be either asc or desc")
	}
	if f.Author != "" {
		id, err := uuid.Parse(f.Author)
		v.Check(err == nil, "author", "must be a valid id")
		q.authorID = id
	}
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	admin := viewer.IsAdmin()
	own := viewer != nil && !viewer.IsAnonymous() && q.authorID == viewer.ID

	if !admin && !own {
		q.status = StatusPublished
	}

	live := false
	switch {
	case admin && f.IncludeDeleted:
		q.deleted = nil
	case admin && f.Deleted != nil:
		q.deleted = f.Deleted
	default:
		q.deleted = &live
	}

	blogs, total, err := s.m.list(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	return blogs, common.NewPagination(total, q.page), nil
}

// ListMyBlogs returns the caller's live posts, drafts included.
func (s *BlogService) ListMyBlogs(ctx context.Context, user *userservice.User, f BlogFilter) ([]*Blog, *common.Pagination, error) {
	if user == nil || user.IsAnonymous() {
		return nil, nil, common.ErrForbidden
	}

	f.Author = user.ID.String()
	f.Deleted = nil
	f.IncludeDeleted = false

	return s.ListBlogs(ctx, user, f)
}

// TrendingBlogs returns the most viewed published posts. limit defaults to 5 and is capped at 20.
func (s *BlogService) TrendingBlogs(ctx context.Context, limit int) ([]*Blog, error) {
	if limit < 1 {
		limit = defaultTrendingLimit
	}
	if limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}

	return s.m.trending(ctx, limit)
}

// UpdateBlog applies req to a live post. Only the owner or an admin may update it. A new title regenerates the slug.
func (s *BlogService) UpdateBlog(ctx context.Context, actor *userservice.User, idOrSlug string, req *UpdateBlogRequest) (*Blog, error) {
	b, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if b.IsDeleted {
		return nil, ErrNotFound
	}

	if !actor.CanModify(b.Author.ID) {
		return nil, common.ErrForbidden
	}

	oldSlug := b.Slug
	titleChanged := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		titleChanged = title != b.Title
		b.Title = title
	}
	if req.Content != nil {
		b.Content = sanitizeContent(*req.Content)
	}
	if req.Excerpt != nil {
		b.Excerpt = strings.TrimSpace(*req.Excerpt)
	}
	if req.CoverImage != nil {
		b.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	if req.Tags != nil {
		b.Tags = normalizeTags(*req.Tags)
	}
	if req.Status != nil {
		b.Status = *req.Status
	}

	v := common.NewValidator()
	validateTitle(v, b.Title)
	validateContent(v, b.Content)
	validateExcerpt(v, b.Excerpt)
	validateCoverImage(v, b.CoverImage)
	validateTags(v, b.Tags)
	validateStatus(v, b.Status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if req.Excerpt != nil && b.Excerpt == "" {
		b.Excerpt = makeExcerpt(b.Content, excerptLength)
	}

	if titleChanged {
		slug, err := s.uniqueSlug(ctx, b.Title, b.ID)
		if err != nil {
			return nil, err
		}
		b.Slug = slug
	}

	if err := s.m.update(ctx, b); err != nil {
		return nil, err
	}

	s.invalidate(b, oldSlug)
	s.n.EmitBlogUpdate(b.ID, b, b.Title)

	return b, nil
}

// DeleteBlog soft-deletes a post. Only the owner or an admin may delete it.
func (s *BlogService) DeleteBlog(ctx context.Context, actor *userservice.User, idOrSlug string) (*Blog, error) {
	b, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if b.IsDeleted {
		return nil, ErrNotFound
	}

	if !actor.CanModify(b.Author.ID) {
		return nil, common.ErrForbidden
	}

	deletedAt, err := s.m.setDeleted(ctx, b.ID, true)
	if err != nil {
		return nil, err
	}
	b.IsDeleted = true
	b.DeletedAt = deletedAt

	s.invalidate(b)
	s.n.EmitBlogDelete(b.ID)

	return b, nil
}

// RestoreBlog clears the soft-delete flag. Admins only.
func (s *BlogService) RestoreBlog(ctx context.Context, actor *userservice.User, idOrSlug string) (*Blog, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}

	b, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if !b.IsDeleted {
		return nil, ErrNotFound
	}

	if _, err := s.m.setDeleted(ctx, b.ID, false); err != nil {
		return nil, err
	}
	b.IsDeleted = false
	b.DeletedAt = nil

	s.invalidate(b)

	return b, nil
}

// DeleteBlogPermanently removes a post and all of its comments. Admins only.
func (s *BlogService) DeleteBlogPermanently(ctx context.Context, actor *userservice.User, idOrSlug string) error {
	if !actor.IsAdmin() {
		return common.ErrForbidden
	}

	b, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return err
	}

	if err := s.m.deletePermanently(ctx, b.ID); err != nil {
		return err
	}

	s.invalidate(b)

	return nil
}

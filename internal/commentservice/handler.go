package commentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func NewCommentService(db *sql.DB, blogs *blogservice.BlogService, c *common.Cache, n Notifier) *CommentService {
	return &CommentService{m: newCommentModel(db), blogs: blogs, c: c, n: n}
}

// livePost resolves a post id or slug, treating soft-deleted posts as missing.
func (s *CommentService) livePost(ctx context.Context, idOrSlug string) (*blogservice.Blog, error) {
	b, err := s.blogs.FindBlog(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if b.IsDeleted {
		return nil, blogservice.ErrNotFound
	}

	return b, nil
}

func (s *CommentService) invalidate(postID uuid.UUID, slug string) {
	patterns := []string{common.CacheKeyBlogs(), common.CacheKeyPostComments(postID.String())}
	if slug != "" {
		patterns = append(patterns, common.CacheKeyPostComments(slug))
	}
	s.c.Invalidate(patterns...)
}

// invalidateFor is used after edits and deletes, when only the post id is at hand.
func (s *CommentService) invalidateFor(ctx context.Context, postID uuid.UUID) {
	slug := ""
	if b, err := s.blogs.FindBlog(ctx, postID.String()); err == nil {
		slug = b.Slug
	}
	s.invalidate(postID, slug)
}

// CreateComment adds a comment or a reply to a live post. A declared parent must belong to the same post.
func (s *CommentService) CreateComment(ctx context.Context, actor *userservice.User, postIDOrSlug string, req *CreateCommentRequest) (*Comment, error) {
	if actor == nil || actor.IsAnonymous() {
		return nil, common.ErrForbidden
	}

	content := strings.TrimSpace(req.Content)

	v := common.NewValidator()
	validateContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	post, err := s.livePost(ctx, postIDOrSlug)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.m.get(ctx, *req.ParentID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return nil, ErrParentNotFound
			default:
				return nil, err
			}
		}

		if parent.PostID != post.ID {
			return nil, ErrParentNotFound
		}
	}

	c := &Comment{
		Content:  content,
		PostID:   post.ID,
		ParentID: req.ParentID,
		Author: blogservice.Author{
			ID:       actor.ID,
			Username: actor.Username,
			Name:     actor.Name,
			Avatar:   actor.Avatar,
		},
	}

	if err := s.m.insert(ctx, c); err != nil {
		return nil, err
	}

	s.invalidate(post.ID, post.Slug)
	s.n.EmitNewComment(post.ID, c)

	if post.Author.ID != actor.ID {
		s.n.NotifyUser(post.Author.ID, Notification{
			Type:      "new-comment",
			Message:   fmt.Sprintf(`%s commented on your post "%s"`, actor.Name, post.Title),
			BlogID:    post.ID,
			CommentID: c.ID,
		})
	}

	return c, nil
}

// withReplies attaches the direct replies of each comment in place.
func (s *CommentService) withReplies(ctx context.Context, comments []*Comment) error {
	ids := make([]uuid.UUID, len(comments))
	byID := make(map[uuid.UUID]*Comment, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Replies = []*Comment{}
	}

	replies, err := s.m.listReplies(ctx, ids)
	if err != nil {
		return err
	}

	for _, r := range replies {
		if parent, ok := byID[*r.ParentID]; ok {
			parent.Replies = append(parent.Replies, r)
		}
	}

	return nil
}

// ListByPost returns a page of a post's top-level comments, newest first, each with its replies oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postIDOrSlug string, p common.Page) ([]*Comment, *common.Pagination, error) {
	post, err := s.livePost(ctx, postIDOrSlug)
	if err != nil {
		return nil, nil, err
	}

	comments, total, err := s.m.listTopLevel(ctx, post.ID, p)
	if err != nil {
		return nil, nil, err
	}

	if err := s.withReplies(ctx, comments); err != nil {
		return nil, nil, err
	}

	return comments, common.NewPagination(total, p), nil
}

// GetComment returns a single comment with its direct replies.
func (s *CommentService) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	c, err := s.m.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.withReplies(ctx, []*Comment{c}); err != nil {
		return nil, err
	}

	return c, nil
}

// ListMyComments returns the caller's comments, newest first.
func (s *CommentService) ListMyComments(ctx context.Context, user *userservice.User, p common.Page) ([]*Comment, *common.Pagination, error) {
	if user == nil || user.IsAnonymous() {
		return nil, nil, common.ErrForbidden
	}

	return s.ListComments(ctx, CommentFilter{AuthorID: user.ID, Page: p})
}

// ListComments returns comments across posts, optionally narrowed to one author or one post.
func (s *CommentService) ListComments(ctx context.Context, f CommentFilter) ([]*Comment, *common.Pagination, error) {
	comments, total, err := s.m.list(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	return comments, common.NewPagination(total, f.Page), nil
}

// UpdateComment replaces the content and marks the comment edited. Only the author or an admin may edit.
func (s *CommentService) UpdateComment(ctx context.Context, actor *userservice.User, id uuid.UUID, req *UpdateCommentRequest) (*Comment, error) {
	c, err := s.m.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanModify(c.Author.ID) {
		return nil, common.ErrForbidden
	}

	content := ""
	if req.Content != nil {
		content = strings.TrimSpace(*req.Content)
	}

	v := common.NewValidator()
	validateContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c.Content = content
	if err := s.m.update(ctx, c); err != nil {
		return nil, err
	}

	s.invalidateFor(ctx, c.PostID)
	s.n.EmitCommentUpdate(c.PostID, c)

	return c, nil
}

// DeleteComment removes a comment and its direct replies. Only the author or an admin may delete.
func (s *CommentService) DeleteComment(ctx context.Context, actor *userservice.User, id uuid.UUID) error {
	c, err := s.m.get(ctx, id)
	if err != nil {
		return err
	}

	if !actor.CanModify(c.Author.ID) {
		return common.ErrForbidden
	}

	if err := s.m.delete(ctx, c.ID); err != nil {
		return err
	}

	s.invalidateFor(ctx, c.PostID)
	s.n.EmitCommentDelete(c.PostID, c.ID)

	return nil
}

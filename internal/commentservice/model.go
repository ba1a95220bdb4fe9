package commentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sushihentaime/blogsphere/internal/common"
)

var (
	ErrNotFound       = fmt.Errorf("comment %w", common.ErrRecordNotFound)
	ErrParentNotFound = fmt.Errorf("parent comment %w", common.ErrRecordNotFound)
)

const (
	commentColumns = `
		c.id, c.content, c.user_id, coalesce(u.username, ''), coalesce(u.name, ''), coalesce(u.avatar, ''),
		c.post_id, c.parent_id, c.is_edited, c.edited_at, c.created_at, c.updated_at`
	commentFrom = `
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id`
)

func newCommentModel(db *sql.DB) *CommentModel {
	return &CommentModel{db: db}
}

func commentScanDest(c *Comment, extra ...any) []any {
	dest := []any{
		&c.ID, &c.Content, &c.Author.ID, &c.Author.Username, &c.Author.Name, &c.Author.Avatar,
		&c.PostID, &c.ParentID, &c.IsEdited, &c.EditedAt, &c.CreatedAt, &c.UpdatedAt,
	}
	return append(dest, extra...)
}

func scanComments(rows *sql.Rows, extra func(c *Comment) []any) ([]*Comment, int, error) {
	defer rows.Close()

	total := 0
	comments := []*Comment{}
	for rows.Next() {
		var c Comment
		var count int
		dest := commentScanDest(&c)
		if extra != nil {
			dest = append(dest, extra(&c)...)
		}
		if err := rows.Scan(append(dest, &count)...); err != nil {
			return nil, 0, err
		}
		total = count
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

func (m *CommentModel) insert(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (content, user_id, post_id, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return m.db.QueryRowContext(ctx, query, c.Content, c.Author.ID, c.PostID, c.ParentID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (m *CommentModel) get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	query := `SELECT ` + commentColumns + commentFrom + ` WHERE c.id = $1`

	var c Comment
	err := m.db.QueryRowContext(ctx, query, id).Scan(commentScanDest(&c)...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

// listTopLevel returns one page of a post's top-level comments, newest first.
func (m *CommentModel) listTopLevel(ctx context.Context, postID uuid.UUID, p common.Page) ([]*Comment, int, error) {
	query := `SELECT ` + commentColumns + `, count(*) OVER()` + commentFrom + `
		WHERE c.post_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := m.db.QueryContext(ctx, query, postID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}

	comments, total, err := scanComments(rows, nil)
	if err != nil {
		return nil, 0, err
	}

	if len(comments) == 0 && p.Offset() > 0 {
		total, err = common.CountRows(ctx, m.db, `FROM comments c WHERE c.post_id = $1 AND c.parent_id IS NULL`, postID)
		if err != nil {
			return nil, 0, err
		}
	}

	return comments, total, nil
}

// listReplies returns the direct replies to any of parents, oldest first.
func (m *CommentModel) listReplies(ctx context.Context, parents []uuid.UUID) ([]*Comment, error) {
	if len(parents) == 0 {
		return []*Comment{}, nil
	}

	ids := make([]string, len(parents))
	for i, id := range parents {
		ids[i] = id.String()
	}

	query := `SELECT ` + commentColumns + `, count(*) OVER()` + commentFrom + `
		WHERE c.parent_id = ANY($1::uuid[])
		ORDER BY c.created_at ASC, c.id ASC`

	rows, err := m.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	replies, _, err := scanComments(rows, nil)
	return replies, err
}

// list backs the per-user and admin listings. Each comment carries a reference to its post.
func (m *CommentModel) list(ctx context.Context, f CommentFilter) ([]*Comment, int, error) {
	var (
		conditions []string
		args       []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AuthorID != uuid.Nil {
		conditions = append(conditions, "c.user_id = "+arg(f.AuthorID))
	}
	if f.PostID != uuid.Nil {
		conditions = append(conditions, "c.post_id = "+arg(f.PostID))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	filterArgs := len(args)

	query := fmt.Sprintf(`
		SELECT %s, coalesce(b.title, ''), coalesce(b.slug, ''), count(*) OVER() %s
		LEFT JOIN blogs b ON b.id = c.post_id
		%s
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT %s OFFSET %s`, commentColumns, commentFrom, where, arg(f.Page.Limit), arg(f.Page.Offset()))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	comments, total, err := scanComments(rows, func(c *Comment) []any {
		c.Post = &PostRef{}
		return []any{&c.Post.Title, &c.Post.Slug}
	})
	if err != nil {
		return nil, 0, err
	}

	for _, c := range comments {
		c.Post.ID = c.PostID
	}

	if len(comments) == 0 && f.Page.Offset() > 0 {
		total, err = common.CountRows(ctx, m.db, "FROM comments c "+where, args[:filterArgs]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return comments, total, nil
}

func (m *CommentModel) update(ctx context.Context, c *Comment) error {
	query := `
		UPDATE comments
		SET content = $1, is_edited = true, edited_at = NOW(), updated_at = NOW()
		WHERE id = $2
		RETURNING is_edited, edited_at, updated_at`

	err := m.db.QueryRowContext(ctx, query, c.Content, c.ID).Scan(&c.IsEdited, &c.EditedAt, &c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		default:
			return err
		}
	}

	return nil
}

// delete removes the comment and its direct replies in one transaction. Deeper descendants are left in place.
func (m *CommentModel) delete(ctx context.Context, id uuid.UUID) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE parent_id = $1`, id); err != nil {
		return common.RollbackTx(tx, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return common.RollbackTx(tx, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return common.RollbackTx(tx, err)
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.RollbackTx(tx, ErrNotFound)
		default:
			return common.RollbackTx(tx, fmt.Errorf("expected 1 row to be affected, got %d", rows))
		}
	}

	return tx.Commit()
}

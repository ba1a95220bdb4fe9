package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sushihentaime/blogsphere/internal/common"
)

var (
	ErrNotFound      = fmt.Errorf("blog %w", common.ErrRecordNotFound)
	ErrDuplicateSlug = errors.New("a post with this slug already exists")
	ErrEditConflict  = errors.New("unable to update the record due to an edit conflict, please try again")
)

const (
	blogColumns = `
		b.id, b.title, b.slug, b.content, b.excerpt, b.cover_image, b.tags, b.status, b.views, b.is_deleted,
		b.deleted_at, b.user_id, coalesce(u.username, ''), coalesce(u.name, ''), coalesce(u.avatar, ''),
		(SELECT count(*) FROM comments c WHERE c.post_id = b.id), b.created_at, b.updated_at, b.version`
	blogFrom = `
		FROM blogs b
		LEFT JOIN users u ON u.id = b.user_id`
	blogSelect = `SELECT ` + blogColumns + blogFrom
)

var sortColumns = map[string]string{
	"createdAt": "b.created_at",
	"updatedAt": "b.updated_at",
	"views":     "b.views",
	"title":     "b.title",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

func blogScanDest(b *Blog, extra ...any) []any {
	dest := []any{
		&b.ID, &b.Title, &b.Slug, &b.Content, &b.Excerpt, &b.CoverImage, pq.Array(&b.Tags), &b.Status, &b.Views,
		&b.IsDeleted, &b.DeletedAt, &b.Author.ID, &b.Author.Username, &b.Author.Name, &b.Author.Avatar,
		&b.CommentCount, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	}
	return append(dest, extra...)
}

func scanBlog(row rowScanner) (*Blog, error) {
	var b Blog
	if err := row.Scan(blogScanDest(&b)...); err != nil {
		return nil, err
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return &b, nil
}

func (m *BlogModel) insert(ctx context.Context, b *Blog) error {
	query := `
		INSERT INTO blogs (title, slug, content, excerpt, cover_image, tags, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, views, created_at, updated_at, version`

	args := []any{b.Title, b.Slug, b.Content, b.Excerpt, b.CoverImage, pq.Array(b.Tags), b.Status, b.Author.ID}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Views, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		switch {
		case common.UniqueViolation(err, "blogs_slug_key"):
			return ErrDuplicateSlug
		default:
			return err
		}
	}

	return nil
}

// slugTaken reports whether another row, deleted or not, already uses slug.
func (m *BlogModel) slugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blogs WHERE slug = $1 AND id <> $2)`

	var taken bool
	err := m.db.QueryRowContext(ctx, query, slug, except).Scan(&taken)
	return taken, err
}

// get returns the blog referenced by ident including soft-deleted rows.
func (m *BlogModel) get(ctx context.Context, ident identifier) (*Blog, error) {
	query := blogSelect + ` WHERE b.slug = $1`
	var arg any = ident.slug
	if ident.isID() {
		query = blogSelect + ` WHERE b.id = $1`
		arg = ident.id
	}

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return b, nil
}

func (m *BlogModel) incrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `UPDATE blogs SET views = views + 1 WHERE id = $1 RETURNING views`

	var views int64
	err := m.db.QueryRowContext(ctx, query, id).Scan(&views)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, ErrNotFound
		default:
			return 0, err
		}
	}

	return views, nil
}

// listQuery is a BlogFilter after visibility rules have been applied.
type listQuery struct {
	status   Status
	authorID uuid.UUID
	tag      string
	search   string
	orderBy  string
	desc     bool
	deleted  *bool
	page     common.Page
}

func (m *BlogModel) list(ctx context.Context, q listQuery) ([]*Blog, int, error) {
	var (
		conditions []string
		args       []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.deleted != nil {
		conditions = append(conditions, "b.is_deleted = "+arg(*q.deleted))
	}
	if q.status != "" {
		conditions = append(conditions, "b.status = "+arg(q.status))
	}
	if q.authorID != uuid.Nil {
		conditions = append(conditions, "b.user_id = "+arg(q.authorID))
	}
	if q.tag != "" {
		conditions = append(conditions, arg(q.tag)+" = ANY(b.tags)")
	}
	if q.search != "" {
		p := arg("%" + likeEscaper.Replace(q.search) + "%")
		conditions = append(conditions, fmt.Sprintf("(b.title ILIKE %s OR b.content ILIKE %s)", p, p))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	column, ok := sortColumns[q.orderBy]
	if !ok {
		column = sortColumns["createdAt"]
	}
	direction := "ASC"
	if q.desc {
		direction = "DESC"
	}

	filterArgs := len(args)

	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s %s
		%s
		ORDER BY %s %s, b.id %s
		LIMIT %s OFFSET %s`,
		blogColumns, blogFrom, where, column, direction, direction, arg(q.page.Limit), arg(q.page.Offset()))

	blogs, total, err := m.queryList(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	if len(blogs) == 0 && q.page.Offset() > 0 {
		total, err = common.CountRows(ctx, m.db, blogFrom+" "+where, args[:filterArgs]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return blogs, total, nil
}

func (m *BlogModel) queryList(ctx context.Context, query string, args ...any) ([]*Blog, int, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	blogs := []*Blog{}
	for rows.Next() {
		var b Blog
		var count int
		if err := rows.Scan(append([]any{&count}, blogScanDest(&b)...)...); err != nil {
			return nil, 0, err
		}
		if b.Tags == nil {
			b.Tags = []string{}
		}
		total = count
		blogs = append(blogs, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return blogs, total, nil
}

func (m *BlogModel) trending(ctx context.Context, limit int) ([]*Blog, error) {
	query := blogSelect + `
		WHERE b.status = 'published' AND b.is_deleted = false
		ORDER BY b.views DESC, b.created_at DESC
		LIMIT $1`

	rows, err := m.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []*Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *BlogModel) update(ctx context.Context, b *Blog) error {
	query := `
		UPDATE blogs
		SET title = $1, slug = $2, content = $3, excerpt = $4, cover_image = $5, tags = $6, status = $7,
			updated_at = NOW(), version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING updated_at, version`

	args := []any{b.Title, b.Slug, b.Content, b.Excerpt, b.CoverImage, pq.Array(b.Tags), b.Status, b.ID, b.Version}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&b.UpdatedAt, &b.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		case common.UniqueViolation(err, "blogs_slug_key"):
			return ErrDuplicateSlug
		default:
			return err
		}
	}

	return nil
}

// setDeleted flips the soft-delete flag. It returns ErrNotFound when the row is missing or already in that state.
func (m *BlogModel) setDeleted(ctx context.Context, id uuid.UUID, deleted bool) (*time.Time, error) {
	query := `
		UPDATE blogs
		SET is_deleted = $1, deleted_at = CASE WHEN $1 THEN NOW() ELSE NULL END, version = version + 1
		WHERE id = $2 AND is_deleted <> $1
		RETURNING deleted_at`

	var deletedAt *time.Time
	err := m.db.QueryRowContext(ctx, query, deleted, id).Scan(&deletedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return deletedAt, nil
}

// deletePermanently removes every comment on the post and then the post itself in one transaction.
func (m *BlogModel) deletePermanently(ctx context.Context, id uuid.UUID) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
		return common.RollbackTx(tx, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
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

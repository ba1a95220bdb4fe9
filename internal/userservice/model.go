package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateIdentity = errors.New("identity already linked to another account")
	ErrNotFound          = fmt.Errorf("user %w", common.ErrRecordNotFound)
	ErrEditConflict      = errors.New("unable to update the record due to an edit conflict, please try again")
)

const userColumns = `
	u.id, u.username, u.name, u.email, u.password, u.role, u.avatar, u.google_id, u.facebook_id,
	u.is_active, u.refresh_token, u.created_at, u.updated_at, u.version`

type rowScanner interface {
	Scan(dest ...any) error
}

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func scanUser(row rowScanner, u *User) error {
	return row.Scan(userScanDest(u)...)
}

func userScanDest(u *User, extra ...any) []any {
	dest := []any{
		&u.ID, &u.Username, &u.Name, &u.Email, &u.Password.hash, &u.Role, &u.Avatar, &u.GoogleID, &u.FacebookID,
		&u.IsActive, &u.refreshHash, &u.CreatedAt, &u.UpdatedAt, &u.Version,
	}
	return append(dest, extra...)
}

// nullBytes stores empty digests and hashes as NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// uniqueError maps a unique constraint violation on users to its sentinel error.
func uniqueError(err error) error {
	switch {
	case common.UniqueViolation(err, "users_username_key"):
		return ErrDuplicateUsername
	case common.UniqueViolation(err, "users_email_key"):
		return ErrDuplicateEmail
	case common.UniqueViolation(err, "users_google_id_key"), common.UniqueViolation(err, "users_facebook_id_key"):
		return ErrDuplicateIdentity
	default:
		return err
	}
}

func providerColumn(p Provider) (string, error) {
	switch p {
	case ProviderGoogle:
		return "google_id", nil
	case ProviderFacebook:
		return "facebook_id", nil
	default:
		return "", fmt.Errorf("unsupported identity provider %q", p)
	}
}

func (m *DBModel) insertUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, name, email, password, role, avatar, google_id, facebook_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_active, created_at, updated_at, version`

	args := []any{u.Username, u.Name, u.Email, nullBytes(u.Password.hash), u.Role, u.Avatar, u.GoogleID, u.FacebookID}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		return uniqueError(err)
	}

	return nil
}

// findConflict reports which of email and username already belong to an account.
func (m *DBModel) findConflict(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	query := `
		SELECT email = $1, username = $2
		FROM users
		WHERE email = $1 OR username = $2`

	rows, err := m.db.QueryContext(ctx, query, email, username)
	if err != nil {
		return false, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var e, n bool
		if err := rows.Scan(&e, &n); err != nil {
			return false, false, err
		}
		emailTaken = emailTaken || e
		usernameTaken = usernameTaken || n
	}

	return emailTaken, usernameTaken, rows.Err()
}

func (m *DBModel) getUser(ctx context.Context, where string, arg any) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE %s`, userColumns, where)

	var u User
	err := scanUser(m.db.QueryRowContext(ctx, query, arg), &u)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func (m *DBModel) getUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return m.getUser(ctx, "u.id = $1", id)
}

func (m *DBModel) getUserByEmail(ctx context.Context, email string) (*User, error) {
	return m.getUser(ctx, "u.email = $1", email)
}

func (m *DBModel) getUserByProvider(ctx context.Context, p Provider, subject string) (*User, error) {
	column, err := providerColumn(p)
	if err != nil {
		return nil, err
	}

	return m.getUser(ctx, "u."+column+" = $1", subject)
}

func (m *DBModel) setRefreshToken(ctx context.Context, id uuid.UUID, hash []byte) error {
	query := `
		UPDATE users
		SET refresh_token = $1
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, nullBytes(hash), id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) updateUserPassword(ctx context.Context, pwd Password, id uuid.UUID, version int) error {
	query := `
		UPDATE users
		SET password = $1, updated_at = NOW(), version = version + 1
		WHERE id = $2 AND version = $3`

	res, err := m.db.ExecContext(ctx, query, pwd.hash, id, version)
	if err != nil {
		return err
	}

	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrEditConflict
		}
		return err
	}

	return nil
}

// updateUser writes every mutable column and bumps the version. A stale version yields ErrEditConflict.
func (m *DBModel) updateUser(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = $1, username = $2, email = $3, role = $4, avatar = $5, is_active = $6,
			updated_at = NOW(), version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING updated_at, version`

	args := []any{u.Name, u.Username, u.Email, u.Role, u.Avatar, u.IsActive, u.ID, u.Version}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return uniqueError(err)
		}
	}

	return nil
}

func (m *DBModel) linkProvider(ctx context.Context, u *User, p Provider, subject string) error {
	column, err := providerColumn(p)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = $1, avatar = $2, updated_at = NOW(), version = version + 1
		WHERE id = $3
		RETURNING updated_at, version`, column)

	err = m.db.QueryRowContext(ctx, query, subject, u.Avatar, u.ID).Scan(&u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		default:
			return uniqueError(err)
		}
	}

	return nil
}

// deleteUser soft-deletes every post owned by the user and removes the account in one transaction.
func (m *DBModel) deleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE blogs
		SET is_deleted = true, deleted_at = NOW()
		WHERE user_id = $1 AND is_deleted = false`, id)
	if err != nil {
		return common.RollbackTx(tx, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return common.RollbackTx(tx, err)
	}

	if err := expectOneRow(res); err != nil {
		return common.RollbackTx(tx, err)
	}

	return tx.Commit()
}

func (m *DBModel) listUsers(ctx context.Context, f UserFilter) ([]*UserSummary, int, error) {
	var (
		conditions []string
		args       []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Role != "" {
		conditions = append(conditions, "u.role = "+arg(f.Role))
	}
	if f.IsActive != nil {
		conditions = append(conditions, "u.is_active = "+arg(*f.IsActive))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conditions = append(conditions, fmt.Sprintf("(u.username ILIKE %s OR u.name ILIKE %s OR u.email ILIKE %s)", p, p, p))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	filterArgs := len(args)

	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s,
			(SELECT count(*) FROM blogs b WHERE b.user_id = u.id AND b.is_deleted = false),
			(SELECT count(*) FROM comments c WHERE c.user_id = u.id)
		FROM users u
		%s
		ORDER BY u.created_at DESC
		LIMIT %s OFFSET %s`, userColumns, where, arg(f.Page.Limit), arg(f.Page.Offset()))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	users := []*UserSummary{}
	for rows.Next() {
		var s UserSummary
		var count int
		if err := rows.Scan(append([]any{&count}, userScanDest(&s.User, &s.PostCount, &s.CommentCount)...)...); err != nil {
			return nil, 0, err
		}
		total = count
		users = append(users, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(users) == 0 && f.Page.Offset() > 0 {
		total, err = common.CountRows(ctx, m.db, "FROM users u "+where, args[:filterArgs]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return users, total, nil
}

func (m *DBModel) getUserStats(ctx context.Context, id uuid.UUID) (*UserStats, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE b.is_deleted = false),
			count(*) FILTER (WHERE b.is_deleted = false AND b.status = 'published'),
			count(*) FILTER (WHERE b.is_deleted = false AND b.status = 'draft'),
			coalesce(sum(b.views) FILTER (WHERE b.is_deleted = false), 0),
			(SELECT count(*) FROM comments c WHERE c.user_id = $1)
		FROM blogs b
		WHERE b.user_id = $1`

	var s UserStats
	err := m.db.QueryRowContext(ctx, query, id).Scan(&s.TotalPosts, &s.PublishedPosts, &s.DraftPosts, &s.TotalViews, &s.TotalComments)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch {
	case rows == 0:
		return ErrNotFound
	case rows > 1:
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	return nil
}

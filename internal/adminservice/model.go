package adminservice

import (
	"context"
	"database/sql"
	"time"
)

func newStatsModel(db *sql.DB) *StatsModel {
	return &StatsModel{db: db}
}

// counts gathers the overview and today's figures in one round trip. since is the start of the current day.
func (m *StatsModel) counts(ctx context.Context, since time.Time) (Overview, Today, error) {
	query := `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM users WHERE is_active),
			(SELECT count(*) FROM blogs WHERE NOT is_deleted),
			(SELECT count(*) FROM blogs WHERE NOT is_deleted AND status = 'published'),
			(SELECT count(*) FROM blogs WHERE NOT is_deleted AND status = 'draft'),
			(SELECT count(*) FROM blogs WHERE is_deleted),
			(SELECT count(*) FROM comments),
			(SELECT count(*) FROM users WHERE created_at >= $1),
			(SELECT count(*) FROM blogs WHERE NOT is_deleted AND created_at >= $1),
			(SELECT count(*) FROM comments WHERE created_at >= $1)`

	var o Overview
	var t Today
	err := m.db.QueryRowContext(ctx, query, since).Scan(
		&o.TotalUsers, &o.ActiveUsers, &o.TotalBlogs, &o.PublishedBlogs, &o.DraftBlogs, &o.DeletedBlogs,
		&o.TotalComments, &t.Users, &t.Blogs, &t.Comments)

	return o, t, err
}

func (m *StatsModel) topAuthors(ctx context.Context, limit int) ([]AuthorStat, error) {
	query := `
		SELECT u.id, u.username, u.name, u.avatar, count(b.id), coalesce(sum(b.views), 0)
		FROM blogs b
		JOIN users u ON u.id = b.user_id
		WHERE NOT b.is_deleted
		GROUP BY u.id
		ORDER BY count(b.id) DESC, u.username ASC
		LIMIT $1`

	rows, err := m.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := []AuthorStat{}
	for rows.Next() {
		var a AuthorStat
		if err := rows.Scan(&a.ID, &a.Username, &a.Name, &a.Avatar, &a.PostCount, &a.Views); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}

	return authors, rows.Err()
}

// monthly counts live posts per calendar month created on or after since, oldest month first.
func (m *StatsModel) monthly(ctx context.Context, since time.Time) ([]MonthStat, error) {
	query := `
		SELECT extract(year FROM created_at)::int, extract(month FROM created_at)::int, count(*)
		FROM blogs
		WHERE NOT is_deleted AND created_at >= $1
		GROUP BY 1, 2
		ORDER BY 1, 2`

	rows, err := m.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []MonthStat{}
	for rows.Next() {
		var s MonthStat
		if err := rows.Scan(&s.Year, &s.Month, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

package activityservice

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

const activitySelect = `
	SELECT a.id, a.user_id, coalesce(u.username, ''), coalesce(u.name, ''), coalesce(u.email, ''), a.action,
		a.resource_type, a.resource_id, a.details, a.ip_address, a.user_agent, a.created_at, count(*) OVER()
	FROM activity_logs a
	LEFT JOIN users u ON u.id = a.user_id`

func newActivityModel(db *sql.DB) *ActivityModel {
	return &ActivityModel{db: db}
}

func (m *ActivityModel) insert(ctx context.Context, a *Activity) error {
	query := `
		INSERT INTO activity_logs (user_id, action, resource_type, resource_id, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	args := []any{a.User.ID, a.Action, a.ResourceType, a.ResourceID, a.Details, a.IPAddress, a.UserAgent}

	return m.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt)
}

func (m *ActivityModel) list(ctx context.Context, f Filter) ([]*Activity, int, error) {
	var (
		conditions []string
		args       []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != uuid.Nil {
		conditions = append(conditions, "a.user_id = "+arg(f.UserID))
	}
	if f.Action != "" {
		conditions = append(conditions, "a.action = "+arg(f.Action))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	filterArgs := len(args)

	query := fmt.Sprintf(`%s
		%s
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT %s OFFSET %s`, activitySelect, where, arg(f.Page.Limit), arg(f.Page.Offset()))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	activities := []*Activity{}
	for rows.Next() {
		var a Activity
		err := rows.Scan(&a.ID, &a.User.ID, &a.User.Username, &a.User.Name, &a.User.Email, &a.Action,
			&a.ResourceType, &a.ResourceID, &a.Details, &a.IPAddress, &a.UserAgent, &a.CreatedAt, &total)
		if err != nil {
			return nil, 0, err
		}
		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(activities) == 0 && f.Page.Offset() > 0 {
		total, err = common.CountRows(ctx, m.db, "FROM activity_logs a "+where, args[:filterArgs]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return activities, total, nil
}

package activityservice

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

func NewActivityService(db *sql.DB) *ActivityService {
	return &ActivityService{m: newActivityModel(db)}
}

// NewPage applies the activity listing defaults to the requested page and limit.
func NewPage(page, limit int) common.Page {
	return common.NewPage(page, limit, defaultListLimit, maxListLimit)
}

// Log appends one entry to the audit trail. Unknown actions and resource types are recorded as other.
func (s *ActivityService) Log(ctx context.Context, a *Activity) error {
	if a.User.ID == uuid.Nil {
		return common.ErrForbidden
	}

	if !common.PermittedValue(a.Action, Actions...) {
		a.Action = ActionOther
	}
	if !common.PermittedValue(a.ResourceType, ResourceBlog, ResourceComment, ResourceUser, ResourceAuth, ResourceOther) {
		a.ResourceType = ResourceOther
	}

	return s.m.insert(ctx, a)
}

// List returns activity newest first, optionally narrowed to one user or one action.
func (s *ActivityService) List(ctx context.Context, f Filter) ([]*Activity, *common.Pagination, error) {
	if f.Action != "" {
		v := common.NewValidator()
		v.Check(common.PermittedValue(f.Action, Actions...), "action", "must be a known activity type")
		if !v.Valid() {
			return nil, nil, v.ValidationError()
		}
	}

	activities, total, err := s.m.list(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	return activities, common.NewPagination(total, f.Page), nil
}

// Recent returns the n newest entries across all users.
func (s *ActivityService) Recent(ctx context.Context, n int) ([]*Activity, error) {
	activities, _, err := s.m.list(ctx, Filter{Page: common.NewPage(1, n, n, n)})
	return activities, err
}

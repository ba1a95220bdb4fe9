package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/common"
)

// responseCapture holds a handler's status and body so the post-handler hooks can inspect them before anything
// reaches the client. Headers go straight to the underlying writer.
type responseCapture struct {
	w      http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rc *responseCapture) Header() http.Header {
	return rc.w.Header()
}

func (rc *responseCapture) WriteHeader(status int) {
	if rc.status == 0 {
		rc.status = status
	}
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	return rc.body.Write(b)
}

func (rc *responseCapture) flush() {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	rc.w.WriteHeader(rc.status)
	rc.w.Write(rc.body.Bytes())
}

type hook func(r *http.Request, res *responseCapture)

// pipeline runs next against a buffered response, then every hook in order, and only then transmits.
func (app *application) pipeline(next http.HandlerFunc, hooks ...hook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := &responseCapture{w: w}
		next(rc, r)

		for _, h := range hooks {
			h(r, rc)
		}

		rc.flush()
	}
}

// cacheResponse serves anonymous GET requests from the response cache and stores fresh 200 responses for ttl.
// Authenticated requests bypass the cache both ways since they may see drafts.
func (app *application) cacheResponse(ttl time.Duration, next http.HandlerFunc) http.HandlerFunc {
	store := app.pipeline(next, func(r *http.Request, res *responseCapture) {
		if res.status != http.StatusOK {
			return
		}
		body := bytes.Clone(res.body.Bytes())
		app.cache.Set(common.CacheKeyRequest(r.URL.RequestURI()), body, ttl)
	})

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !app.getUserContext(r).IsAnonymous() {
			next(w, r)
			return
		}

		if v, found := app.cache.Get(common.CacheKeyRequest(r.URL.RequestURI())); found {
			if body, ok := v.([]byte); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}
		}

		w.Header().Set("X-Cache", "MISS")
		store(w, r)
	}
}

type activityBody struct {
	Data struct {
		ID   *uuid.UUID `json:"id"`
		User *struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

// logActivity records successful requests in the audit trail. The actor is the authenticated user, or for sign-in
// responses the user in the body. The resource is the id route parameter or else the id in the body.
func (app *application) logActivity(action activityservice.Action, resource activityservice.ResourceType) hook {
	return func(r *http.Request, res *responseCapture) {
		if res.status >= http.StatusBadRequest {
			return
		}

		var body activityBody
		_ = json.Unmarshal(res.body.Bytes(), &body)

		actor := uuid.Nil
		if user := app.getUserContext(r); !user.IsAnonymous() {
			actor = user.ID
		} else if body.Data.User != nil {
			actor = body.Data.User.ID
		}
		if actor == uuid.Nil {
			return
		}

		a := &activityservice.Activity{
			User:         activityservice.Actor{ID: actor},
			Action:       action,
			ResourceType: resource,
			Details:      r.Method + " " + r.URL.RequestURI(),
			IPAddress:    app.clientIP(r),
			UserAgent:    r.UserAgent(),
		}

		if id, err := uuid.Parse(app.readParam(r, "id")); err == nil {
			a.ResourceID = &id
		} else if body.Data.ID != nil {
			a.ResourceID = body.Data.ID
		}

		if err := app.activityService.Log(r.Context(), a); err != nil {
			app.logError(r, err)
		}
	}
}

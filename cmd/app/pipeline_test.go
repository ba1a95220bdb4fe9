package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func TestPipeline(t *testing.T) {
	app := &application{config: testConfig(), logger: discardLogger()}

	var seen []int
	h := app.pipeline(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true}`))
	}, func(r *http.Request, res *responseCapture) {
		seen = append(seen, res.status)
	}, func(r *http.Request, res *responseCapture) {
		seen = append(seen, res.body.Len())
	})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, []int{http.StatusCreated, len(`{"success":true}`)}, seen)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "yes", rr.Header().Get("X-Test"))
	assert.Equal(t, `{"success":true}`, rr.Body.String())
}

func TestCacheResponse(t *testing.T) {
	newApp := func() *application {
		return &application{config: testConfig(), logger: discardLogger(), cache: common.NewCache(time.Minute, time.Minute)}
	}

	t.Run("Anonymous", func(t *testing.T) {
		app := newApp()

		calls := 0
		h := app.cacheResponse(time.Minute, func(w http.ResponseWriter, r *http.Request) {
			calls++
			app.writeJSON(w, http.StatusOK, ok([]string{"a"}), nil)
		})

		rr := httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/v1/blogs?page=1", nil))
		assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
		first := rr.Body.String()

		rr = httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/v1/blogs?page=1", nil))
		assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
		assert.Equal(t, first, rr.Body.String())
		assert.Equal(t, 1, calls)

		// the query string is part of the key
		rr = httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/v1/blogs?page=2", nil))
		assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
		assert.Equal(t, 2, calls)

		app.cache.Invalidate(common.CacheKeyBlogs())

		rr = httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/v1/blogs?page=1", nil))
		assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
		assert.Equal(t, 3, calls)
	})

	t.Run("Authenticated", func(t *testing.T) {
		app := newApp()

		calls := 0
		h := app.cacheResponse(time.Minute, func(w http.ResponseWriter, r *http.Request) {
			calls++
			app.writeJSON(w, http.StatusOK, ok([]string{"draft"}), nil)
		})

		for range 2 {
			rr := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/blogs", nil)
			r = app.createUserContext(r, &userservice.User{ID: uuid.New(), Role: userservice.RoleUser})
			h(rr, r)
			assert.Empty(t, rr.Header().Get("X-Cache"))
		}

		assert.Equal(t, 2, calls)
		assert.Equal(t, 0, app.cache.Stats().Keys)
	})

	t.Run("Errors Are Not Stored", func(t *testing.T) {
		app := newApp()

		h := app.cacheResponse(time.Minute, func(w http.ResponseWriter, r *http.Request) {
			app.notFoundResponse(w, r)
		})

		for range 2 {
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(http.MethodGet, "/v1/blogs/missing", nil))
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
		}
	})
}

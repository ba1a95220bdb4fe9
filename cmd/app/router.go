package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
)

// withStatic serves static in place of the parameterized handler when the named parameter equals segment. httprouter
// does not allow a static segment next to a parameter on the same path.
func (app *application) withStatic(param, segment string, static, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.readParam(r, param) == segment {
			static(w, r)
			return
		}
		next(w, r)
	}
}

// onlyStatic serves next only when the named parameter equals segment.
func (app *application) onlyStatic(param, segment string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.readParam(r, param) != segment {
			app.routeNotFoundResponse(w, r)
			return
		}
		next(w, r)
	}
}

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.routeNotFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/ws", app.hub.ServeWS)

	// auth
	router.HandlerFunc(http.MethodPost, "/v1/auth/register", app.pipeline(app.registerUserHandler, app.logActivity(activityservice.ActionRegister, activityservice.ResourceAuth)))
	router.HandlerFunc(http.MethodPost, "/v1/auth/login", app.pipeline(app.loginUserHandler, app.logActivity(activityservice.ActionLogin, activityservice.ResourceAuth)))
	router.HandlerFunc(http.MethodPost, "/v1/auth/refresh-token", app.refreshTokenHandler)
	router.HandlerFunc(http.MethodPost, "/v1/auth/logout", app.requireAuthUser(app.pipeline(app.logoutUserHandler, app.logActivity(activityservice.ActionLogout, activityservice.ResourceAuth))))
	router.HandlerFunc(http.MethodGet, "/v1/auth/me", app.requireAuthUser(app.currentUserHandler))
	router.HandlerFunc(http.MethodPut, "/v1/auth/profile", app.requireAuthUser(app.pipeline(app.updateProfileHandler, app.logActivity(activityservice.ActionOther, activityservice.ResourceUser))))
	router.HandlerFunc(http.MethodPut, "/v1/auth/change-password", app.requireAuthUser(app.pipeline(app.changePasswordHandler, app.logActivity(activityservice.ActionOther, activityservice.ResourceAuth))))
	router.HandlerFunc(http.MethodGet, "/v1/auth/me/blogs", app.requireAuthUser(app.myBlogsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/auth/me/comments", app.requireAuthUser(app.myCommentsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/auth/oauth/:provider", app.oauthLoginHandler)
	router.HandlerFunc(http.MethodGet, "/v1/auth/oauth/:provider/callback", app.oauthCallbackHandler)

	// blogs
	trending := app.cacheResponse(blogservice.TrendingTTL, app.trendingBlogsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/blogs", app.cacheResponse(blogservice.ListTTL, app.listBlogsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id", app.withStatic("id", "trending", trending, app.getBlogHandler))
	router.HandlerFunc(http.MethodPost, "/v1/blogs", app.requireAuthUser(app.pipeline(app.createBlogHandler, app.logActivity(activityservice.ActionCreatePost, activityservice.ResourceBlog))))
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id", app.requireAuthUser(app.pipeline(app.updateBlogHandler, app.logActivity(activityservice.ActionUpdatePost, activityservice.ResourceBlog))))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id", app.requireAuthUser(app.pipeline(app.deleteBlogHandler, app.logActivity(activityservice.ActionDeletePost, activityservice.ResourceBlog))))
	router.HandlerFunc(http.MethodPost, "/v1/blogs/:id/restore", app.requireAdmin(app.pipeline(app.restoreBlogHandler, app.logActivity(activityservice.ActionAdmin, activityservice.ResourceBlog))))

	// comments; GET /v1/comments/post/:postId shares its first segment with GET /v1/comments/:id
	router.HandlerFunc(http.MethodGet, "/v1/comments/:id", app.getCommentHandler)
	router.HandlerFunc(http.MethodGet, "/v1/comments/:id/:postId", app.onlyStatic("id", "post", app.cacheResponse(commentservice.ListTTL, app.listPostCommentsHandler)))
	router.HandlerFunc(http.MethodPost, "/v1/comments/post/:postId", app.requireAuthUser(app.pipeline(app.createCommentHandler, app.logActivity(activityservice.ActionCreateComment, activityservice.ResourceComment))))
	router.HandlerFunc(http.MethodPut, "/v1/comments/:id", app.requireAuthUser(app.pipeline(app.updateCommentHandler, app.logActivity(activityservice.ActionUpdateComment, activityservice.ResourceComment))))
	router.HandlerFunc(http.MethodDelete, "/v1/comments/:id", app.requireAuthUser(app.pipeline(app.deleteCommentHandler, app.logActivity(activityservice.ActionDeleteComment, activityservice.ResourceComment))))

	// admin
	router.HandlerFunc(http.MethodGet, "/v1/admin/dashboard", app.requireAdmin(app.dashboardHandler))
	router.HandlerFunc(http.MethodGet, "/v1/admin/users", app.requireAdmin(app.listUsersHandler))
	router.HandlerFunc(http.MethodGet, "/v1/admin/users/:id", app.requireAdmin(app.getUserHandler))
	router.HandlerFunc(http.MethodPut, "/v1/admin/users/:id", app.requireAdmin(app.pipeline(app.updateUserHandler, app.logActivity(activityservice.ActionAdmin, activityservice.ResourceUser))))
	router.HandlerFunc(http.MethodDelete, "/v1/admin/users/:id", app.requireAdmin(app.pipeline(app.deleteUserHandler, app.logActivity(activityservice.ActionAdmin, activityservice.ResourceUser))))
	router.HandlerFunc(http.MethodGet, "/v1/admin/blogs", app.requireAdmin(app.adminListBlogsHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/admin/blogs/:id/permanent", app.requireAdmin(app.pipeline(app.deleteBlogPermanentlyHandler, app.logActivity(activityservice.ActionAdmin, activityservice.ResourceBlog))))
	router.HandlerFunc(http.MethodGet, "/v1/admin/comments", app.requireAdmin(app.adminListCommentsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/admin/activity-logs", app.requireAdmin(app.listActivityHandler))
	router.HandlerFunc(http.MethodPost, "/v1/admin/cache/clear", app.requireAdmin(app.pipeline(app.clearCacheHandler, app.logActivity(activityservice.ActionAdmin, activityservice.ResourceOther))))

	return app.recoverPanic(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router)))))
}

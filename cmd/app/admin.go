package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/adminservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	dashboard, err := app.adminService.Dashboard(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(dashboard), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := common.NewValidator()

	page, limit := app.readPage(qs, v)
	f := userservice.UserFilter{
		Role:     app.readString(qs, "role", ""),
		IsActive: app.readBool(qs, "isActive", v),
		Search:   app.readString(qs, "search", ""),
		Page:     adminservice.NewPage(page, limit),
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	users, pagination, err := app.adminService.ListUsers(r.Context(), f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(users, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	detail, err := app.adminService.GetUser(r.Context(), app.getUserContext(r), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input userservice.AdminUpdateUserRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.adminService.UpdateUser(r.Context(), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			app.failedValidationResponse(w, r, map[string]string{"email": "a user with this email address already exists"})
		case errors.Is(err, userservice.ErrDuplicateUsername):
			app.failedValidationResponse(w, r, map[string]string{"username": "this username is already taken"})
		case errors.Is(err, userservice.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(user), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.adminService.DeleteUser(r.Context(), app.getUserContext(r), id)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrSelfDeletion):
			app.badRequestResponse(w, r, err)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("user deleted successfully"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) adminListBlogsHandler(w http.ResponseWriter, r *http.Request) {
	f, v := app.readBlogFilter(r)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	blogs, pagination, err := app.adminService.ListBlogs(r.Context(), app.getUserContext(r), f)
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blogs, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteBlogPermanentlyHandler(w http.ResponseWriter, r *http.Request) {
	err := app.adminService.DeleteBlogPermanently(r.Context(), app.getUserContext(r), app.readParam(r, "id"))
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("blog and its comments permanently deleted"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) adminListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := common.NewValidator()

	page, limit := app.readPage(qs, v)
	f := commentservice.CommentFilter{
		AuthorID: app.readUUID(qs, "author", v),
		PostID:   app.readUUID(qs, "post", v),
		Page:     commentservice.NewPage(page, limit),
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	comments, pagination, err := app.adminService.ListComments(r.Context(), f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(comments, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listActivityHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := common.NewValidator()

	page, limit := app.readPage(qs, v)
	f := activityservice.Filter{
		UserID: app.readUUID(qs, "userId", v),
		Action: activityservice.Action(app.readString(qs, "action", "")),
		Page:   activityservice.NewPage(page, limit),
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	activities, pagination, err := app.adminService.ListActivity(r.Context(), f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(activities, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	stats := app.adminService.ClearCache()

	env := message("cache cleared successfully")
	env["data"] = stats

	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
)

// readBlogFilter reads the listing query string shared by the public, personal and admin blog listings.
func (app *application) readBlogFilter(r *http.Request) (blogservice.BlogFilter, *common.Validator) {
	qs := r.URL.Query()
	v := common.NewValidator()

	page, limit := app.readPage(qs, v)

	f := blogservice.BlogFilter{
		Status:  app.readString(qs, "status", ""),
		Author:  app.readString(qs, "author", ""),
		Tag:     app.readString(qs, "tag", ""),
		Search:  app.readString(qs, "search", ""),
		SortBy:  app.readString(qs, "sortBy", ""),
		Order:   app.readString(qs, "order", ""),
		Deleted: app.readBool(qs, "isDeleted", v),
		Page:    blogservice.NewPage(page, limit),
	}

	return f, v
}

func (app *application) blogErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blogservice.ErrEditConflict):
		app.editConflictResponse(w, r)
	default:
		app.serviceErrorResponse(w, r, err)
	}
}

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	f, v := app.readBlogFilter(r)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}
	f.Deleted = nil

	blogs, pagination, err := app.blogService.ListBlogs(r.Context(), app.getUserContext(r), f)
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blogs, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) trendingBlogsHandler(w http.ResponseWriter, r *http.Request) {
	v := common.NewValidator()
	limit := app.readInt(r.URL.Query(), "limit", 0, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	blogs, err := app.blogService.TrendingBlogs(r.Context(), limit)
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blogs), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getBlogHandler(w http.ResponseWriter, r *http.Request) {
	blog, err := app.blogService.GetBlog(r.Context(), app.getUserContext(r), app.readParam(r, "id"))
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blog), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.CreateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	blog, err := app.blogService.CreateBlog(r.Context(), app.getUserContext(r), &input)
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, ok(blog), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.UpdateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	blog, err := app.blogService.UpdateBlog(r.Context(), app.getUserContext(r), app.readParam(r, "id"), &input)
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blog), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	_, err := app.blogService.DeleteBlog(r.Context(), app.getUserContext(r), app.readParam(r, "id"))
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("blog deleted successfully"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) restoreBlogHandler(w http.ResponseWriter, r *http.Request) {
	blog, err := app.blogService.RestoreBlog(r.Context(), app.getUserContext(r), app.readParam(r, "id"))
	if err != nil {
		app.blogErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blog), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

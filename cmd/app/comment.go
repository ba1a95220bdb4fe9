package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
)

func (app *application) commentErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, commentservice.ErrParentNotFound):
		app.writeErrorResponse(w, r, http.StatusNotFound, "parent comment not found", nil)
	default:
		app.serviceErrorResponse(w, r, err)
	}
}

func (app *application) listPostCommentsHandler(w http.ResponseWriter, r *http.Request) {
	v := common.NewValidator()
	page, limit := app.readPage(r.URL.Query(), v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	comments, pagination, err := app.commentService.ListByPost(r.Context(), app.readParam(r, "postId"), commentservice.NewPage(page, limit))
	if err != nil {
		app.commentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(comments, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	var input commentservice.CreateCommentRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	comment, err := app.commentService.CreateComment(r.Context(), app.getUserContext(r), app.readParam(r, "postId"), &input)
	if err != nil {
		app.commentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, ok(comment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	comment, err := app.commentService.GetComment(r.Context(), id)
	if err != nil {
		app.commentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(comment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input commentservice.UpdateCommentRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	comment, err := app.commentService.UpdateComment(r.Context(), app.getUserContext(r), id, &input)
	if err != nil {
		app.commentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(comment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.commentService.DeleteComment(r.Context(), app.getUserContext(r), id)
	if err != nil {
		app.commentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("comment deleted successfully"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/userservice"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

func (app *application) createUserContext(r *http.Request, user *userservice.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// getUserContext never returns nil. Requests that did not pass through authenticate are anonymous.
func (app *application) getUserContext(r *http.Request) *userservice.User {
	user, ok := r.Context().Value(userContextKey).(*userservice.User)
	if !ok {
		return userservice.AnonymousUser
	}
	return user
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

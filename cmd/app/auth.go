package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

const oauthStateCookie = "oauth_state"

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input userservice.CreateUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.userService.CreateUser(r.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			app.failedValidationResponse(w, r, map[string]string{"email": "a user with this email address already exists"})
		case errors.Is(err, userservice.ErrDuplicateUsername):
			app.failedValidationResponse(w, r, map[string]string{"username": "this username is already taken"})
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, ok(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type loginUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input loginUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.userService.LoginUser(r.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrInvalidCredentials):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input refreshTokenRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.RefreshToken == "" {
		app.failedValidationResponse(w, r, map[string]string{"refreshToken": "must be provided"})
		return
	}

	token, err := app.userService.RefreshAccessToken(r.Context(), input.RefreshToken)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(map[string]string{"token": token}), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) logoutUserHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	err := app.userService.LogoutUser(r.Context(), user)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("logged out successfully"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, ok(app.getUserContext(r)), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var input userservice.UpdateProfileRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.userService.UpdateProfile(r.Context(), app.getUserContext(r), &input)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrDuplicateUsername):
			app.failedValidationResponse(w, r, map[string]string{"username": "this username is already taken"})
		case errors.Is(err, userservice.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	app.cache.Invalidate(common.CacheKeyBlogs())

	err = app.writeJSON(w, http.StatusOK, ok(user), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (app *application) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input changePasswordRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.userService.ChangePassword(r.Context(), app.getUserContext(r), input.CurrentPassword, input.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrInvalidCredentials):
			app.failedValidationResponse(w, r, map[string]string{"currentPassword": "is incorrect"})
		case errors.Is(err, userservice.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, message("password changed successfully"), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) myBlogsHandler(w http.ResponseWriter, r *http.Request) {
	f, v := app.readBlogFilter(r)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	blogs, pagination, err := app.blogService.ListMyBlogs(r.Context(), app.getUserContext(r), f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(blogs, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) myCommentsHandler(w http.ResponseWriter, r *http.Request) {
	v := common.NewValidator()
	page, limit := app.readPage(r.URL.Query(), v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	comments, pagination, err := app.commentService.ListMyComments(r.Context(), app.getUserContext(r), commentservice.NewPage(page, limit))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, ok(comments, pagination), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func (app *application) identityProvider(r *http.Request) (userservice.IdentityProvider, bool) {
	p, found := app.providers[userservice.Provider(app.readParam(r, "provider"))]
	return p, found
}

// oauthLoginHandler starts the authorization-code flow. The state travels in a short-lived cookie.
func (app *application) oauthLoginHandler(w http.ResponseWriter, r *http.Request) {
	provider, found := app.identityProvider(r)
	if !found {
		app.notFoundResponse(w, r)
		return
	}

	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// oauthCallbackHandler finishes the flow and hands the tokens to the frontend through the redirect URL.
func (app *application) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	provider, found := app.identityProvider(r)
	if !found {
		app.notFoundResponse(w, r)
		return
	}

	fail := func(err error) {
		app.logError(r, err)
		q := url.Values{"message": {"Authentication failed"}}
		http.Redirect(w, r, app.config.FrontendURL+"/auth/error?"+q.Encode(), http.StatusFound)
	}

	state, err := r.Cookie(oauthStateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		fail(errors.New("oauth state mismatch"))
		return
	}

	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, MaxAge: -1, Path: "/"})

	identity, err := provider.Identify(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		fail(err)
		return
	}

	result, err := app.userService.LoginWithIdentity(r.Context(), identity)
	if err != nil {
		fail(err)
		return
	}

	q := url.Values{"token": {result.AccessToken}, "refreshToken": {result.RefreshToken}}
	http.Redirect(w, r, app.config.FrontendURL+"/auth/callback?"+q.Encode(), http.StatusFound)
}

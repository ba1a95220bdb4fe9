package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url), slog.String("request_id", requestID(r)))
}

func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string, extra envelope) {
	env := envelope{"success": false, "message": message}
	for k, v := range extra {
		env[k] = v
	}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	var extra envelope
	if !app.config.production() {
		extra = envelope{"stack": err.Error()}
	}

	app.writeErrorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request", extra)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, "validation failed", envelope{"errors": errors})
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusNotFound, "resource not found", nil)
}

func (app *application) routeNotFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusNotFound, "route not found", nil)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
}

func (app *application) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "invalid email or password", nil)
}

func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "you must be authenticated to access this resource", nil)
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "invalid or missing authentication token", nil)
}

func (app *application) expiredTokenResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "token has expired", nil)
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "you do not have permission to perform this action", nil)
}

func (app *application) inactiveAccountResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "your account has been deactivated", nil)
}

func (app *application) adminRequiredResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "admin privileges required", nil)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusTooManyRequests, "too many requests from this IP, please try again later", nil)
}

func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusConflict, "unable to update the record due to an edit conflict, please try again", nil)
}

// serviceErrorResponse maps the errors shared by every service to a response. Handlers switch on their own
// sentinels first and fall through to this.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr common.ValidationError

	switch {
	case errors.As(err, &validationErr):
		app.failedValidationResponse(w, r, validationErr.Errors)
	case errors.Is(err, common.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, common.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, userservice.ErrAccountInactive):
		app.inactiveAccountResponse(w, r)
	case errors.Is(err, userservice.ErrTokenExpired):
		app.expiredTokenResponse(w, r)
	case errors.Is(err, userservice.ErrInvalidToken):
		app.invalidAuthenticationTokenResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

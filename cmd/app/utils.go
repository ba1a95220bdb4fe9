package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/blogsphere/internal/common"
)

type envelope map[string]any

func (e envelope) JSON() string {
	json, err := json.MarshalIndent(e, "", "\t")
	if err != nil {
		return ""
	}

	return string(json)
}

// ok wraps data in a success envelope. A pagination is attached when one is given.
func ok(data any, p ...*common.Pagination) envelope {
	env := envelope{"success": true, "data": data}
	if len(p) > 0 && p[0] != nil {
		env["pagination"] = p[0]
	}

	return env
}

func message(msg string) envelope {
	return envelope{"success": true, "message": msg}
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	json, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(json)

	return nil
}

func (app *application) parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 10 << 20
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("request body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("request body contains an invalid value for the %q field", unmarshalTypeError.Field)
			}
			return fmt.Errorf("request body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("request body contains unknown field %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = decoder.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("request body must only contain a single JSON value")
	}

	return nil
}

func (app *application) readParam(r *http.Request, key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

func (app *application) readUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(app.readParam(r, key))
	if err != nil {
		return uuid.Nil, errors.New("invalid id parameter")
	}

	return id, nil
}

func (app *application) readString(qs url.Values, key, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	return s
}

func (app *application) readInt(qs url.Values, key string, defaultValue int, v *common.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}

	return i
}

// readBool returns nil when the parameter is absent.
func (app *application) readBool(qs url.Values, key string, v *common.Validator) *bool {
	s := qs.Get(key)
	if s == "" {
		return nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		v.AddError(key, "must be a boolean value")
		return nil
	}

	return &b
}

func (app *application) readUUID(qs url.Values, key string, v *common.Validator) uuid.UUID {
	s := qs.Get(key)
	if s == "" {
		return uuid.Nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		v.AddError(key, "must be a valid id")
		return uuid.Nil
	}

	return id
}

// readPage reads page and limit. Zero means the caller's default applies.
func (app *application) readPage(qs url.Values, v *common.Validator) (int, int) {
	page := app.readInt(qs, "page", 1, v)
	limit := app.readInt(qs, "limit", 0, v)

	v.Check(page > 0, "page", "must be greater than zero")
	v.Check(page <= common.MaxPageNumber, "page", fmt.Sprintf("must not be more than %d", common.MaxPageNumber))
	v.Check(limit >= 0, "limit", "must not be negative")

	return page, limit
}

// background runs fn on its own goroutine, recovering and logging any panic.
func (app *application) background(fn func()) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Error(fmt.Sprintf("%v", err))
			}
		}()

		fn()
	}()
}

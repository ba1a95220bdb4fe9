package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/common"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var envelope envelope
	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, envelope
}

func testConfig() *Config {
	return &Config{
		Port:                 ":0",
		Environment:          "development",
		Version:              "test",
		TrustedOrigins:       []string{"http://localhost:5173"},
		FrontendURL:          "http://localhost:5173",
		JWTSecret:            "test-access-secret",
		JWTRefreshSecret:     "test-refresh-secret",
		JWTExpiresIn:         15 * time.Minute,
		JWTRefreshExpiresIn:  24 * time.Hour,
		CacheTTL:             5 * time.Minute,
		CacheCleanupInterval: 10 * time.Minute,
		RateLimitRequests:    1000,
		RateLimitWindow:      15 * time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../../migrations", t)

	app := newApplication(testConfig(), discardLogger(), db, nil)
	t.Cleanup(app.hub.Close)

	return app, db
}

func (ts *testServer) do(t *testing.T, method, path string, token *string, payload any) (int, http.Header, envelope) {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) post(t *testing.T, path string, token *string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPost, path, token, payload)
}

func (ts *testServer) get(t *testing.T, path string, token *string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodGet, path, token, nil)
}

func (ts *testServer) put(t *testing.T, path string, token *string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPut, path, token, payload)
}

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodDelete, path, token, nil)
}

// register signs up a user and returns the access token and the user's id.
func (ts *testServer) register(t *testing.T, username string) (string, string) {
	status, _, body := ts.post(t, "/v1/auth/register", nil, map[string]any{
		"username": username,
		"name":     "Test " + username,
		"email":    username + "@example.com",
		"password": "Test_1234",
	})
	require.Equal(t, http.StatusCreated, status, body.JSON())

	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)

	return data["token"].(string), user["id"].(string)
}

func makeAdmin(t *testing.T, db *sql.DB, id string) {
	_, err := db.Exec("UPDATE users SET role = 'admin' WHERE id = $1", id)
	require.NoError(t, err)
}

func dataMap(t *testing.T, body envelope) map[string]any {
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, body.JSON())
	return data
}

func dataList(t *testing.T, body envelope) []any {
	data, ok := body["data"].([]any)
	require.True(t, ok, body.JSON())
	return data
}

func strptr(s string) *string {
	return &s
}

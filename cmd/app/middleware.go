package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/userservice"
	"golang.org/x/time/rate"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code for the request log. It passes Hijack through so websocket upgrades
// still work behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	if sr.status == 0 {
		sr.status = status
	}
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			id     = uuid.NewString()
			ip     = r.RemoteAddr
			method = r.Method
			proto  = r.Proto
			uri    = r.URL.RequestURI()
			start  = time.Now()
		)

		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id))

		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)

		app.logger.Info("request",
			slog.String("request_id", id),
			slog.String("method", method),
			slog.String("uri", uri),
			slog.String("remote_addr", ip),
			slog.String("proto", proto),
			slog.Int("status", sr.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func (app *application) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")

		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(app.config.TrustedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PUT, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// ipRateLimiter keeps one token bucket per client IP. Buckets refill at requests per window and start full.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterInfo
	every    rate.Limit
	burst    int
	idle     time.Duration
}

func newIPRateLimiter(requests int, window time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*limiterInfo),
		every:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		idle:     window,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.limiters[ip]
	if !ok {
		info = &limiterInfo{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[ip] = info
	}
	info.lastAccessed = time.Now()

	return info.limiter.Allow()
}

// cleanup drops buckets that have been idle for a full window until ctx is done.
func (l *ipRateLimiter) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip, info := range l.limiters {
				if time.Since(info.lastAccessed) > l.idle {
					delete(l.limiters, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// clientIP is the socket address unless the peer is a trusted proxy, in which case the forwarding headers name the
// client. X-Forwarded-For is read from the right and stops at the first hop that is not a trusted proxy.
func (app *application) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if !app.config.trustedProxy(host) {
		return host
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !app.config.trustedProxy(hop) {
				return hop
			}
		}
	}

	return host
}

func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") && !app.limiter.allow(app.clientIP(r)) {
			app.rateLimitExceededResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken looks for a bearer token in the Authorization header, then the token cookie, then the token query
// parameter. A malformed Authorization header yields ok false.
func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	return r.URL.Query().Get("token"), true
}

func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		token, ok := extractToken(r)
		if !ok {
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		if token == "" {
			r = app.createUserContext(r, userservice.AnonymousUser)
			next.ServeHTTP(w, r)
			return
		}

		user, err := app.userService.GetUserByAccessToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, userservice.ErrTokenExpired):
				app.expiredTokenResponse(w, r)
			case errors.Is(err, userservice.ErrInvalidToken), errors.Is(err, userservice.ErrNotFound), errors.Is(err, userservice.ErrAccountInactive):
				app.invalidAuthenticationTokenResponse(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		r = app.createUserContext(r, user)
		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthUser(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := app.getUserContext(r)
		if user.IsAnonymous() {
			app.authenticationRequiredResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	fn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := app.getUserContext(r)
		if !user.IsAdmin() {
			app.adminRequiredResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})

	return app.requireAuthUser(fn)
}

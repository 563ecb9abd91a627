package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

type contextKey string

// SessionIDKey holds the id of the validated session in the request context.
const SessionIDKey contextKey = "session_id"

// AuthHandler exchanges the shared PIN for a session cookie.
type AuthHandler struct {
	verifier     *auth.PINVerifier
	limiter      *auth.AttemptLimiter
	sessions     *auth.Sessions
	metrics      *metrics.ClinicMetrics
	logger       *logging.Logger
	secureCookie bool
}

// NewAuthHandler constructs an AuthHandler. secureCookie marks the session
// cookie Secure and should be on outside local development.
func NewAuthHandler(
	verifier *auth.PINVerifier,
	limiter *auth.AttemptLimiter,
	sessions *auth.Sessions,
	m *metrics.ClinicMetrics,
	logger *logging.Logger,
	secureCookie bool,
) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{
		verifier:     verifier,
		limiter:      limiter,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type sessionResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /auth/pin
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "invalid request body: "+err.Error())
		return
	}

	ip := clientIP(r)
	attempt := h.limiter.Hit(r.Context(), ip)
	if !attempt.Allowed {
		h.metrics.ObservePINAttempt("limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(attempt.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, KindRateLimited, "too many attempts, try again later")
		return
	}

	ok, err := h.verifier.Verify(r.Context(), strings.TrimSpace(req.PIN))
	if errors.Is(err, auth.ErrMalformedPIN) {
		h.metrics.ObservePINAttempt("invalid")
		writeError(w, http.StatusBadRequest, KindValidation, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("pin verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "internal error, please retry")
		return
	}
	if !ok {
		h.metrics.ObservePINAttempt("invalid")
		h.logger.Warn("invalid pin", "remote_ip", ip, "attempt", attempt.Count)
		writeError(w, http.StatusUnauthorized, KindUnauthorized, "invalid pin")
		return
	}

	token, expires, err := h.sessions.Issue()
	if err != nil {
		h.logger.Error("issue session failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "internal error, please retry")
		return
	}
	h.limiter.Reset(r.Context(), ip)
	h.metrics.ObservePINAttempt("ok")

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{ExpiresAt: expires})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// RequireSession rejects requests without a valid session cookie or bearer token.
func RequireSession(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
				token = cookie.Value
			} else if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
				token = strings.TrimPrefix(authz, "Bearer ")
			}

			claims, err := sessions.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, KindUnauthorized, "pin required")
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

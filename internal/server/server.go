package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ainurse/internal/app"
	"ainurse/internal/ratelimit"
	"ainurse/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	LoginRateLimitPerMinute  int
	SignupRateLimitPerMinute int
	TrustedProxyCIDRs        []string
}

// Server exposes the HTTP endpoints of the triage backend.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	trustedProxies *util.TrustedProxies
	loginLimiter   *ratelimit.FixedWindowLimiter
	signupLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Rate limiting is active
// only when a Redis address is provided.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		trustedProxies: trusted,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		signupLimit := cfg.SignupRateLimitPerMinute
		if signupLimit <= 0 {
			signupLimit = 5
		}
		newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
			prefix := "ainurse:ratelimit:" + name
			limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return limiter, nil
		}
		if s.loginLimiter, err = newLimiter("login", loginLimit); err != nil {
			return nil, err
		}
		if s.signupLimiter, err = newLimiter("signup", signupLimit); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(
		util.WithCORS(
			util.WithRequestID(
				util.WithRequestLog("ainurse", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/users/", s.handleUsers)
	s.mux.HandleFunc("/patients/", s.handlePatients)
	s.mux.HandleFunc("/cases/", s.handleCases)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "muitas tentativas de login") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "corpo JSON inválido")
		return
	}
	user, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", "invalid_credentials")
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if id == "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleCreateUser(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := s.app.GetUser(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req app.UpdateUserInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "corpo JSON inválido")
			return
		}
		user, err := s.app.UpdateUser(id, req)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "muitas tentativas de cadastro") {
		s.audit(r, "signup", "rate_limited")
		return
	}
	var req app.RegisterUserInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "corpo JSON inválido")
		return
	}
	user, err := s.app.RegisterUser(req)
	if err != nil {
		s.audit(r, "signup", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ownerID, ok := requireOwnerID(w, r)
	if !ok {
		return
	}
	patients, err := s.app.ListPatients(ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cases/"), "/")
	if id == "" {
		switch r.Method {
		case http.MethodPost:
			s.handleSubmitCase(w, r)
		case http.MethodGet:
			s.handleListCases(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}
	switch r.Method {
	case http.MethodGet:
		detail, err := s.app.GetCaseDetail(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodDelete:
		ownerID, ok := requireOwnerID(w, r)
		if !ok {
			return
		}
		if err := s.app.DeleteCase(id, ownerID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSubmitCase(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwnerID(w, r)
	if !ok {
		return
	}
	var req app.CaseInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo JSON inválido")
		return
	}
	c, err := s.app.SubmitCase(r.Context(), ownerID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwnerID(w, r)
	if !ok {
		return
	}
	cases, err := s.app.ListCases(ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

func requireOwnerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id é obrigatório")
		return "", false
	}
	return ownerID, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "método não permitido")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrEmailAlreadyExists),
		errors.Is(err, app.ErrMissingPatientData),
		errors.Is(err, app.ErrSymptomsRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "erro interno")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

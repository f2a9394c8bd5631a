package httpapi

import (
	"log/slog"
	"net/http"

	"recipe-blog/backend/internal/account"
	"recipe-blog/backend/internal/config"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/token"
)

type Server struct {
	cfg    config.Config
	svc    *account.Service
	tokens *token.Manager
	log    *slog.Logger
	mux    *http.ServeMux
}

func NewServer(cfg config.Config, svc *account.Service, tokens *token.Manager, l *slog.Logger) *Server {
	if l == nil {
		l = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		tokens: tokens,
		log:    l,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverMiddleware(s.log, h)
	h = loggingMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/verify-otp", s.handleVerifyOTP)
	s.mux.HandleFunc("/api/auth/resend-otp", s.handleResendOTP)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)

	s.mux.Handle("/api/auth/profile", s.requireAuth(http.HandlerFunc(s.handleProfile)))
	s.mux.Handle("/api/auth/update-profile", s.requireAuth(http.HandlerFunc(s.handleUpdateProfile)))
	s.mux.Handle("/api/auth/all-users", s.requireAuth(requireRole(model.RoleAdmin, http.HandlerFunc(s.handleAllUsers))))

	s.registerUploads()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

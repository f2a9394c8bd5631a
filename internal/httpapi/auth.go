package httpapi

import (
	"errors"
	"net/http"

	"recipe-blog/backend/internal/account"
	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"
)

type accountResponse struct {
	Message string              `json:"message"`
	User    model.PublicAccount `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req account.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	created, err := s.svc.Register(r.Context(), req)
	if err != nil {
		// The account exists but the code never left; the client is told
		// to ask for a resend.
		if errors.Is(err, apperr.ErrDeliveryFailed) && created.ID != "" {
			writeJSON(w, http.StatusAccepted, accountResponse{
				Message: apperr.ErrDeliveryFailed.Message,
				User:    created,
			})
			return
		}
		writeAppError(w, r, s.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{
		Message: "registration successful, check your email for the verification code",
		User:    created,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req account.VerifyInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	verified, err := s.svc.Verify(r.Context(), req)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Message: "email verified", User: verified})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req account.ResendInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	if err := s.svc.ResendOTP(r.Context(), req); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "a new verification code has been sent"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req account.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	res, err := s.svc.Login(r.Context(), req)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

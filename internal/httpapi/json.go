package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/logger"
)

const maxJSONBodyBytes = 1 << 20

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", allowed+" only")
}

// writeAppError renders err with the status its code maps to. Server-side
// failures are logged; their causes never reach the client.
func writeAppError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	e := apperr.As(err)
	status := e.Status()
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), l).ErrorContext(r.Context(), "request failed",
			"code", e.Code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    string(e.Code),
		Message: e.Message,
		Fields:  e.Fields,
	}})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and bodies over maxJSONBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badJSON(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.New(apperr.CodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}

func badJSON(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return apperr.New(apperr.CodeBadRequest, fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.New(apperr.CodeBadRequest, "malformed JSON")
	case errors.As(err, &typeErr):
		return apperr.New(apperr.CodeBadRequest, fmt.Sprintf("field %q has the wrong type", typeErr.Field))
	case errors.Is(err, io.EOF):
		return apperr.New(apperr.CodeBadRequest, "request body is empty")
	case errors.As(err, &maxErr):
		return apperr.New(apperr.CodeBadRequest, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return apperr.New(apperr.CodeBadRequest, "unknown field "+field)
	}
	return apperr.New(apperr.CodeBadRequest, "invalid JSON")
}

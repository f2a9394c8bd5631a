package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"recipe-blog/backend/internal/account"
	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"
)

// Headroom for the multipart envelope and text fields around the avatar.
const multipartOverhead = 1 << 20

type updateProfileRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type usersResponse struct {
	Users []model.PublicAccount `json:"users"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	id, _ := IdentityFromContext(r.Context())
	acc, err := s.svc.Profile(r.Context(), id.AccountID)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w, http.MethodPut)
		return
	}

	var (
		in  account.UpdateProfileInput
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = s.readMultipartProfile(w, r)
	} else {
		var req updateProfileRequest
		err = decodeJSON(w, r, &req)
		in = account.UpdateProfileInput{Username: req.Username, Password: req.Password}
	}
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	id, _ := IdentityFromContext(r.Context())
	updated, err := s.svc.UpdateProfile(r.Context(), id.AccountID, in)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Message: "profile updated", User: updated})
}

func (s *Server) readMultipartProfile(w http.ResponseWriter, r *http.Request) (account.UpdateProfileInput, error) {
	maxAvatar := s.cfg.UploadMaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatar+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return account.UpdateProfileInput{}, apperr.Validation(map[string]string{
				"avatar": fmt.Sprintf("must be at most %d bytes", maxAvatar),
			})
		}
		return account.UpdateProfileInput{}, apperr.New(apperr.CodeBadRequest, "malformed multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	for name := range r.MultipartForm.Value {
		if name != "username" && name != "password" {
			return account.UpdateProfileInput{}, apperr.New(apperr.CodeBadRequest, fmt.Sprintf("unknown field %q", name))
		}
	}
	for name := range r.MultipartForm.File {
		if name != "avatar" {
			return account.UpdateProfileInput{}, apperr.New(apperr.CodeBadRequest, fmt.Sprintf("unknown file field %q", name))
		}
	}

	// Browsers submit every form field; an empty text field means unchanged.
	var in account.UpdateProfileInput
	if v, ok := r.MultipartForm.Value["username"]; ok && len(v) > 0 && v[0] != "" {
		in.Username = &v[0]
	}
	if v, ok := r.MultipartForm.Value["password"]; ok && len(v) > 0 && v[0] != "" {
		in.Password = &v[0]
	}

	file, header, err := r.FormFile("avatar")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return account.UpdateProfileInput{}, apperr.New(apperr.CodeBadRequest, "unreadable avatar file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatar+1))
	if err != nil {
		return account.UpdateProfileInput{}, apperr.New(apperr.CodeBadRequest, "unreadable avatar file")
	}
	in.Avatar = &account.Avatar{Filename: header.Filename, Data: data}
	return in, nil
}

func (s *Server) handleAllUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	users, err := s.svc.ListAccounts(r.Context())
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

package httpapi

import (
	"net/http"
	"strings"
)

// registerUploads serves avatars written by the local upload driver. The
// s3 driver hands out absolute URLs, so nothing is mounted for it.
func (s *Server) registerUploads() {
	if s.cfg.UploadDriver != "local" || s.cfg.UploadLocalDir == "" {
		return
	}
	prefix := strings.TrimRight(s.cfg.UploadPublicBaseURL, "/")
	if !strings.HasPrefix(prefix, "/") || prefix == "" {
		return
	}
	fs := http.FileServer(http.Dir(s.cfg.UploadLocalDir))
	s.mux.Handle(prefix+"/", http.StripPrefix(prefix, noDirListing(fs)))
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

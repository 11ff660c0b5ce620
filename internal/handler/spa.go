package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built single-page frontend from a directory.
//
// Any path that does not match a real file falls back to index.html so the
// client-side router can take over — a deep link like /memories/2024 must
// load the app, not 404.
type SPAHandler struct {
	staticDir string
	fs        http.Handler
}

// NewSPAHandler creates a SPAHandler rooted at staticDir.
func NewSPAHandler(staticDir string) *SPAHandler {
	return &SPAHandler{
		staticDir: staticDir,
		fs:        http.FileServer(http.Dir(staticDir)),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Never fall back for API-looking paths; a missing endpoint is a 404,
	// not a page load.
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/auth/") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
		return
	}
	h.fs.ServeHTTP(w, r)
}

// Package uploads serves stored profile images by their reference name.
package uploads

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/aanand-mishra/student-manager/internal/attachment"
)

// Serve handles GET /uploads/{filename}. Only names the attachment
// manager recognises are served: no directory listings, no dotfiles,
// no half-written temp files.
func Serve(files *attachment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("filename")
		if !files.Exists(name) {
			slog.Debug("upload not found", slog.String("filename", name))
			http.NotFound(w, r)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		// Names are never reused, so the content behind one never changes.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeFile(w, r, filepath.Join(files.Dir(), name))
	}
}

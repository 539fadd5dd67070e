package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/report"
)

// handleReportAsset serves generated chart files from the data directory.
func (s *Server) handleReportAsset(w http.ResponseWriter, r *http.Request) {
	path, err := report.AssetPath(s.cfg.DataDir, chi.URLParam(r, "id"), chi.URLParam(r, "asset"))
	if err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Invalid report asset path")
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.respondDetail(w, r, http.StatusNotFound, "Report asset not found")
		return
	}
	http.ServeFile(w, r, path)
}

package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

const uploadPreviewLen = 500

// handleUpload accepts a plain-text document (job spec or CV) and returns a
// preview the client can paste into a session start request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(s.cfg.UploadMaxBytes); err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Upload too large or malformed")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Form field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.UploadMaxBytes))
	if err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Read upload failed")
		return
	}
	if bytes.ContainsRune(data, 0) || !utf8.Valid(data) {
		s.respondDetail(w, r, http.StatusBadRequest, "Only plain-text files are supported")
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		s.respondDetail(w, r, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	respondJSON(w, http.StatusOK, protocol.UploadResponse{
		TextPreview: truncateRunes(text, uploadPreviewLen),
	})
}

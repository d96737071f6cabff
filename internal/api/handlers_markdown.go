package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type markdownRequest struct {
	Markdown json.RawMessage `json:"markdown"`
}

type markdownResponse struct {
	HTML string `json:"html"`
}

// handleMarkdown renders a markdown document to HTML.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req markdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Invalid markdown input", http.StatusBadRequest)
		return
	}
	var markdown string
	if len(req.Markdown) == 0 || string(req.Markdown) == "null" || json.Unmarshal(req.Markdown, &markdown) != nil {
		jsonError(w, "Invalid markdown input", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(markdown) == "" {
		writeJSON(w, http.StatusOK, markdownResponse{HTML: ""})
		return
	}

	html, err := s.renderer.Render(r.Context(), markdown)
	if err != nil {
		s.log.Error("render markdown", "error", err, "request_id", requestID(r))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Error processing markdown",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, markdownResponse{HTML: html})
}

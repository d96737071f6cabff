package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/docweave/internal/parser"
	"github.com/go-chi/chi/v5"
)

// handleListFiles lists the markdown documents in the docs directory.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.DocsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error("list markdown files", "dir", s.cfg.DocsDir, "error", err)
		jsonError(w, "Error reading markdown files", http.StatusInternalServerError)
		return
	}

	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && parser.IsSupportedExtension(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

// handleGetFile returns one markdown document verbatim.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validFileName(name) {
		jsonError(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.DocsDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			jsonError(w, "File not found", http.StatusNotFound)
			return
		}
		s.log.Error("read markdown file", "name", name, "error", err)
		jsonError(w, "Error reading markdown file", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

// validFileName accepts a bare markdown file name: no separators, no dot-dot
// and no hidden files.
func validFileName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name && parser.IsSupportedExtension(name)
}

package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/wms/internal/tabular"
)

// UserIDHeader names the acting user when a request carries no user_id.
const UserIDHeader = "X-User-ID"

// handleExport streams every matching record of a module as CSV, or XLSX
// with format=xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "module")

	params, format, err := exportParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	f := tabular.ParseFormat(format)
	data, err := s.pipeline.ExportAs(r.Context(), s.db, key, params, f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeFile(w, f, key+"-export", data)
}

// handleSample serves the two-row import template of a module.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "module")
	f := tabular.ParseFormat(r.URL.Query().Get("format"))

	data, err := s.pipeline.Sample(key, f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeFile(w, f, key+"-sample", data)
}

// handleImport reads the multipart "file" field and returns the row report.
// The report is returned with 200 even when every row failed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "module")
	if _, err := s.registry.Get(key); err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	report, err := s.pipeline.Import(r.Context(), s.db, key, data, header.Filename, s.userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return errTooLarge
	}
	return fmt.Errorf("%w: %v", errBadForm, err)
}

// userID picks the acting user: the user_id form field, then the
// X-User-ID header, then the configured default.
func (s *Server) userID(r *http.Request) string {
	if id := strings.TrimSpace(r.FormValue("user_id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
		return id
	}
	return s.cfg.Import.DefaultUserID
}

func writeFile(w http.ResponseWriter, f tabular.Format, name string, data []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, f.Ext()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

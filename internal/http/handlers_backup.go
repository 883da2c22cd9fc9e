package http

import (
	"fmt"
	"io"
	"net/http"

	"gestornet/internal/backup"
	"gestornet/internal/services"
)

type importResponse struct {
	Managers     int `json:"managers"`
	Clients      int `json:"clients"`
	Transactions int `json:"transactions"`
}

// handleExportBackup downloads the current state as a JSON attachment.
func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	doc := s.deps.Backup.Export(r.Context())
	data, err := backup.Encode(doc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName(s.today())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImportBackup replaces managers, clients and transactions with the
// uploaded document. The body is the raw backup JSON.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Ficheiro de backup demasiado grande")
		return
	}
	if len(data) == 0 {
		badRequest(w, errEmptyBody)
		return
	}
	doc, err := s.deps.Backup.Import(r.Context(), data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, importResponse{
		Managers:     len(doc.Managers),
		Clients:      len(doc.Clients),
		Transactions: len(doc.Transactions),
	})
}

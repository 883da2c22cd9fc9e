package http

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"gestornet/internal/backup"
	"gestornet/internal/core"
	"gestornet/internal/log"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// handleServiceError maps service errors to status codes. Validation and
// auth messages are shown to the operator as they are; anything else is
// logged and reported as a generic failure.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *core.ValidationError
		aerr *core.AuthError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, core.ErrNotLoggedIn), errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, aerrOrDefault(err))
	case errors.As(err, &aerr):
		writeError(w, http.StatusForbidden, aerr.Message)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Registo não encontrado")
	case errors.Is(err, core.ErrSetupComplete):
		writeError(w, http.StatusConflict, "A configuração inicial já foi concluída")
	case errors.Is(err, core.ErrSetupRequired):
		writeError(w, http.StatusConflict, "É necessário concluir a configuração inicial")
	case errors.Is(err, backup.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, "Ficheiro de backup inválido")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Erro interno")
	}
}

func aerrOrDefault(err error) string {
	var aerr *core.AuthError
	if errors.As(err, &aerr) {
		return aerr.Message
	}
	return core.ErrNotLoggedIn.Message
}

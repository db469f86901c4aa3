package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"conjuntos-api/internal/repository"
	"conjuntos-api/internal/service"
)

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// writeList attaches the item count alongside the data array.
func writeList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &n})
}

func writeMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// exposeDetails gates raw error text in responses; it stays false in
// production.
var exposeDetails = false

// SetExposeErrorDetails toggles the details field on 500 responses.
func SetExposeErrorDetails(on bool) {
	exposeDetails = on
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	env := Envelope{Success: false, Error: msg}
	if err != nil && exposeDetails {
		env.Details = err.Error()
	}
	writeJSON(w, status, env)
}

// writeServiceError maps sentinel errors to HTTP statuses: validation 400,
// not-found 404, conflict 409, anything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found", nil)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error", err)
	}
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

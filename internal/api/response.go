package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"assetbridge-nexus/internal/errs"

	"go.uber.org/zap"
)

// envelope is the body shape of every API response
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func list(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

// fail maps a classified error to its status. Internal detail is only
// exposed outside production.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	body := envelope{Success: false, Message: errs.MessageOf(err)}

	if kind == errs.KindInternal {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if !s.production {
			body.Error = err.Error()
		}
	} else {
		zap.L().Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.String("kind", kind.String()),
			zap.String("message", body.Message))
	}
	writeJSON(w, kind.HTTPStatus(), body)
}

// decode reads a JSON request body into v
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.Validation("Request body too large")
		}
		return errs.Validation("Invalid request body")
	}
	return nil
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/rules"
)

// AuditInfo holds audit metadata extracted from request headers.
type AuditInfo struct {
	Actor         string
	Source        string
	CorrelationID *string
}

func (a AuditInfo) fields() []zap.Field {
	fs := []zap.Field{zap.String("actor", a.Actor), zap.String("source", a.Source)}
	if a.CorrelationID != nil {
		fs = append(fs, zap.String("correlation_id", *a.CorrelationID))
	}
	return fs
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// validationResponse is the body of a 400 VALIDATION_ERROR response. Error
// repeats the first field message.
type validationResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code"`
	Fields []rules.FieldError `json:"fields"`
}

func writeValidation(w http.ResponseWriter, errs []rules.FieldError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{
		Error:  errs[0].Message,
		Code:   "VALIDATION_ERROR",
		Fields: errs,
	})
}

// decodeJSON decodes the request body into v. Numbers decode as json.Number
// so integer and decimal columns keep their precision.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts page_size and offset from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 20, Offset: 0}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// parseAuditContext extracts audit metadata from request headers. Requests
// without X-Actor are attributed to "anonymous".
func parseAuditContext(r *http.Request) AuditInfo {
	info := AuditInfo{
		Actor:  r.Header.Get("X-Actor"),
		Source: r.Header.Get("X-Source"),
	}
	if info.Actor == "" {
		info.Actor = "anonymous"
	}
	if info.Source == "" {
		info.Source = "user"
	}
	if cid := r.Header.Get("X-Correlation-ID"); cid != "" {
		info.CorrelationID = &cid
	}
	return info
}

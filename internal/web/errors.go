package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/pipeline"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
)

// ErrorResponse is the JSON body of every error reply. Code is a short
// reference users can quote to support.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// UserMessage is what a failure means to the caller.
type UserMessage struct {
	Status  int
	Message string
	Action  string
	Code    string
}

var (
	errNoFile    = errors.New("no file provided")
	errBadForm   = errors.New("invalid multipart form")
	errBadID     = errors.New("invalid record id")
	errBadBody   = errors.New("invalid request body")
	errTooLarge  = errors.New("file too large")
	defaultError = UserMessage{
		Status:  http.StatusInternalServerError,
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
)

// Postgres SQLSTATE codes surfaced as client errors.
var pgCodes = map[string]UserMessage{
	"23505": {Status: http.StatusConflict, Message: "This value must be unique but already exists", Action: "Use a different name", Code: "DB002"},
	"23503": {Status: http.StatusBadRequest, Message: "Referenced record does not exist", Action: "Create the referenced record first", Code: "DB003"},
	"23502": {Status: http.StatusBadRequest, Message: "A required value is missing", Action: "Fill in every required field", Code: "DB008"},
	"22P02": {Status: http.StatusBadRequest, Message: "A value has the wrong format", Action: "Check numbers and dates", Code: "VAL002"},
	"40P01": {Status: http.StatusServiceUnavailable, Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"},
}

// MapError classifies err for the client. Typed errors are matched first,
// then Postgres error codes, then a few well-known message fragments.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		cfgErr    *modules.ConfigurationError
		parseErr  *tabular.ParseError
		dupErr    *store.DuplicateError
		fieldErr  *FieldError
		exportErr *pipeline.ExportError
		pgErr     *pgconn.PgError
		maxErr    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &cfgErr):
		if cfgErr.Reason == modules.ReasonUnregistered {
			return UserMessage{Status: http.StatusNotFound, Message: err.Error(), Action: "Check the module name", Code: "CFG001"}
		}
		return UserMessage{Status: http.StatusBadRequest, Message: err.Error(), Action: "This module does not support the operation", Code: "CFG002"}
	case errors.As(err, &parseErr):
		return UserMessage{Status: http.StatusBadRequest, Message: err.Error(), Action: "Save the file as CSV or XLSX and try again", Code: "FILE002"}
	case errors.As(err, &maxErr), errors.Is(err, errTooLarge):
		return UserMessage{Status: http.StatusRequestEntityTooLarge, Message: "File exceeds maximum size limit", Action: "Split the file into smaller chunks", Code: "FILE001"}
	case errors.Is(err, errNoFile), errors.Is(err, errBadForm):
		return UserMessage{Status: http.StatusBadRequest, Message: err.Error(), Action: "Upload the file in a multipart field named \"file\"", Code: "FILE003"}
	case errors.Is(err, pipeline.ErrBusy):
		return UserMessage{Status: http.StatusTooManyRequests, Message: err.Error(), Action: "Wait for running imports to finish", Code: "RATE002"}
	case errors.Is(err, store.ErrNotFound):
		return UserMessage{Status: http.StatusNotFound, Message: "Record not found", Code: "REC001"}
	case errors.As(err, &dupErr):
		return UserMessage{Status: http.StatusConflict, Message: err.Error(), Action: "Use a different name", Code: "DB001"}
	case errors.As(err, &fieldErr), errors.Is(err, store.ErrInvalidParams), errors.Is(err, errBadID), errors.Is(err, errBadBody):
		return UserMessage{Status: http.StatusBadRequest, Message: err.Error(), Code: "VAL001"}
	case errors.As(err, &pgErr):
		if msg, ok := pgCodes[pgErr.Code]; ok {
			return msg
		}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{Status: http.StatusGatewayTimeout, Message: "Operation timed out", Action: "Try a smaller file or try again later", Code: "DB006"}
	case errors.As(err, &exportErr):
		return UserMessage{Status: http.StatusInternalServerError, Message: "Export failed for " + exportErr.Module, Action: "Please try again or contact support", Code: "EXP001"}
	}

	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return UserMessage{Status: http.StatusServiceUnavailable, Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB004"}
	}
	return defaultError
}

// respondError logs err with the request id and writes the mapped reply.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	level := slog.LevelWarn
	if msg.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"code", msg.Code,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSONStatus(w, msg.Status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

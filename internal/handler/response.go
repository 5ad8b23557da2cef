package handler

// Every error response has one of two shapes:
//
//	{"msg": "Post not found"}
//	{"errors": [{"field": "email", "msg": "Please include a valid email"}]}
//
// The second is used for validation failures so the client can show each
// message next to its field.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/devconnect/internal/apperror"
)

// maxBodyBytes caps request bodies; every payload here is a small form.
const maxBodyBytes = 1 << 20

// MessageResponse is the {"msg": ...} body used for errors and acknowledgements.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// ValidationResponse lists every violated field rule.
type ValidationResponse struct {
	Errors []apperror.FieldError `json:"errors"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Msg: msg})
}

// writeError maps a domain error onto a status code and body.
//
//	ErrValidation          → 400 {"errors": [...]}
//	ErrInvalidCredentials  → 400
//	ErrConflict            → 400
//	ErrUnauthorized        → 401
//	ErrForbidden           → 403
//	ErrNotFound            → 404
//	anything else          → 500 {"msg": "Server Error"}
//
// The cause of a 500 is logged and never sent to the client; it may hold
// SQL or file paths.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeMsg(w, http.StatusInternalServerError, "Server Error")
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		if len(appErr.Fields) > 0 {
			writeJSON(w, http.StatusBadRequest, ValidationResponse{Errors: appErr.Fields})
			return
		}
		writeMsg(w, http.StatusBadRequest, appErr.Message)
	case errors.Is(err, apperror.ErrInvalidCredentials), errors.Is(err, apperror.ErrConflict):
		writeMsg(w, http.StatusBadRequest, appErr.Message)
	case errors.Is(err, apperror.ErrUnauthorized):
		writeMsg(w, http.StatusUnauthorized, appErr.Message)
	case errors.Is(err, apperror.ErrForbidden):
		writeMsg(w, http.StatusForbidden, appErr.Message)
	case errors.Is(err, apperror.ErrNotFound):
		writeMsg(w, http.StatusNotFound, appErr.Message)
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeMsg(w, http.StatusInternalServerError, "Server Error")
	}
}

// decodeJSON reads the request body into dst. An empty body decodes to the
// zero value so that field validation, not the decoder, reports what is
// missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/middleware/auth"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, core.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Authentication failed",
		log.FieldErrorType, log.ErrorTypeAuth,
		log.FieldError, err)
	w.Header().Set("WWW-Authenticate", `Bearer realm="splitledger"`)
	msg := "invalid token"
	if errors.Is(err, auth.ErrMissingToken) {
		msg = "missing bearer token"
	}
	writeMessage(w, http.StatusUnauthorized, msg)
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldOwnerID, auth.OwnerFromContext(r.Context()))
	writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
// An empty body leaves v untouched, however it was framed.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return core.Invalid("body", "request body is empty")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF) && optional:
			return nil
		case errors.Is(err, io.EOF):
			return core.Invalid("body", "request body is empty")
		case errors.As(err, &maxErr):
			return core.Invalid("body", "request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return core.Invalid(typeErr.Field, "has the wrong type")
		default:
			return core.Invalid("body", "malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return core.Invalid("body", "must contain a single JSON object")
	}
	return nil
}

// owner returns the authenticated owner. The auth middleware guarantees one.
func owner(r *http.Request) string {
	return auth.OwnerFromContext(r.Context())
}

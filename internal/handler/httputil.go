package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/prefs"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// apiErrorToHTTP maps upstream client errors to appropriate HTTP
// responses. Submission failures keep their distinct shapes so the
// caller can tell too-large from rejected from timed-out.
func apiErrorToHTTP(w http.ResponseWriter, err error) {
	var ue *assetapi.UnprocessableError
	var se *assetapi.StatusError
	switch {
	case errors.Is(err, assetapi.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
	case errors.Is(err, assetapi.ErrSubmitTimeout):
		writeError(w, http.StatusGatewayTimeout, "SUBMIT_TIMEOUT", err.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusUnprocessableEntity, "UPSTREAM_REJECTED", ue.Error())
	case errors.As(err, &se):
		if se.Code == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "NOT_FOUND", se.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", se.Error())
	case errors.Is(err, prefs.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, prefs.ErrUnknownKey):
		writeError(w, http.StatusBadRequest, "UNKNOWN_KEY", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

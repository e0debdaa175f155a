package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

func writeResponse(w http.ResponseWriter, contentType string, body []byte, statusCode int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		log.Errorf("failed to write %d response: %s", statusCode, err)
	}
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	writeResponse(w, contentTypeText, []byte(message), http.StatusOK)
}

// WriteJSON marshals v and writes it with statusCode. A value that cannot be
// marshalled becomes a plain 500.
func WriteJSON(w http.ResponseWriter, v any, statusCode int) {
	respBytes, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal %T response: %s", v, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeResponse(w, contentTypeJSON, respBytes, statusCode)
}

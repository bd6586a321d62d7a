// response.go — HTTP response helpers.
package util

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(logger logrus.FieldLogger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Error("encoding JSON response")
	}
}

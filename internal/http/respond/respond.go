package respond

import (
	"encoding/json"
	"net/http"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error maps a fault kind to an HTTP status and writes a JSON error body.
// Uncategorized errors surface as an opaque internal error; callers must
// treat the operation's effect as unknown.
func Error(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch faults.KindOf(err) {
	case faults.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case faults.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case faults.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case faults.KindTransient:
		status = http.StatusServiceUnavailable
		message = "temporary store failure, retry the request"
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		if logger != nil {
			logger.Error("request failed", "error", err, "status", status)
		}
	}

	JSON(w, status, errorBody{Status: "error", Message: message})
}

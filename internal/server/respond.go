package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/orchestrator"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps taxonomy codes onto statuses. A full command queue
// is not part of the taxonomy and maps to 503 so clients back off.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, orchestrator.ErrQueueFull) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: err.Error()})
		return
	}
	code := apperror.CodeOf(err)
	writeJSON(w, apperror.HTTPStatus(code), errorBody{Detail: apperror.DetailOf(err)})
}

// decode parses a JSON request body, rejecting unknown garbage early.
func decode(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(into); err != nil {
		return apperror.Wrap(apperror.CodeValidation, "invalid request body", err)
	}
	return nil
}

func statusLabel(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}

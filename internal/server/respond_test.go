package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/orchestrator"
)

func TestWriteError_TaxonomyMapping(t *testing.T) {
	tests := []struct {
		code   apperror.Code
		status int
	}{
		{apperror.CodeValidation, http.StatusBadRequest},
		{apperror.CodeNotFound, http.StatusNotFound},
		{apperror.CodeConflict, http.StatusConflict},
		{apperror.CodeProvider, http.StatusBadGateway},
		{apperror.CodeKube, http.StatusBadGateway},
		{apperror.CodeHelm, http.StatusBadGateway},
		{apperror.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, apperror.New(tt.code, "boom"))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "boom", body.Detail)
		})
	}
}

func TestWriteError_Unclassified(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("wrapped: %w", assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteError_QueueFull(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("enqueue: %w", orchestrator.ErrQueueFull))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Detail, "queue is full")
}

func TestDecode_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var into map[string]any
	err := decode(req, &into)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, "invalid request body", apperror.DetailOf(err))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "200", statusLabel(0), "unwritten responses default to 200")
	assert.Equal(t, "201", statusLabel(201))
	assert.Equal(t, "503", statusLabel(503))
}

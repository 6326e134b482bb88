package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_IncludesRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	r := httptest.NewRequest(http.MethodGet, "/api/query", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	ErrorResponse(w, r, http.StatusBadRequest, "Message is required")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "Message is required", payload["error"])
	assert.Equal(t, "req-123", payload["request_id"])
}

func TestWriteJSONResponse_Body(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/places", nil)
	w := httptest.NewRecorder()

	WriteJSONResponse(w, r, http.StatusOK, map[string]any{"total": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"total": 3}`, w.Body.String())
}

func TestWriteJSONResponse_NoContent(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/api/chat/history", nil)
	w := httptest.NewRecorder()

	WriteJSONResponse(w, r, http.StatusNoContent, map[string]any{"ignored": true})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	decode := func(body string) (payload, error) {
		r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
		w := httptest.NewRecorder()
		var dst payload
		err := DecodeJSONBody(w, r, &dst)
		return dst, err
	}

	t.Run("valid body", func(t *testing.T) {
		dst, err := decode(`{"message": "สวัสดี", "session_id": "abc"}`)
		require.NoError(t, err)
		assert.Equal(t, "สวัสดี", dst.Message)
		assert.Equal(t, "abc", dst.SessionID)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := decode("")
		require.Error(t, err)
		assert.Equal(t, "body must not be empty", err.Error())
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := decode(`{"message": `)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "badly-formed JSON")
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := decode(`{"message": "hi", "bogus": true}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown key "bogus"`)
	})

	t.Run("wrong field type", func(t *testing.T) {
		_, err := decode(`{"message": 42}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `incorrect JSON type for field "message"`)
	})

	t.Run("trailing data", func(t *testing.T) {
		_, err := decode(`{"message": "hi"}{"message": "again"}`)
		require.Error(t, err)
		assert.Equal(t, "body must only contain a single JSON value", err.Error())
	})
}

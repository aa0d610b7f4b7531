package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIsValidBearerToken(t *testing.T) {
	Init(config.APIConfig{AuthToken: "s3cret"})
	log := logger_i.NewLogger("test_middleware")

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid", "Bearer s3cret", true},
		{"empty", "", false},
		{"wrong scheme", "Basic s3cret", false},
		{"wrong token", "Bearer nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidBearerToken(tt.header, log))
		})
	}

	t.Run("no configured token rejects everything", func(t *testing.T) {
		Init(config.APIConfig{})
		assert.False(t, IsValidBearerToken("Bearer ", log))
	})

	t.Run("bypass", func(t *testing.T) {
		Init(config.APIConfig{NoAuthBypass: true})
		assert.True(t, IsValidBearerToken("", log))
	})
}

func TestWrap(t *testing.T) {
	Init(config.APIConfig{AuthToken: "s3cret"})
	var gotTrace any
	h := Wrap(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Context().Value(config.TRACE_ID_KEY)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("unauthorised request never reaches the handler", func(t *testing.T) {
		gotTrace = nil
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/status/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, gotTrace)
	})

	t.Run("trace id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status/x", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		req.Header.Set("X-Trace-Id", "trace-42")
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "trace-42", gotTrace)
		assert.Equal(t, "trace-42", rec.Header().Get("X-Trace-Id"))
	})

	t.Run("rate limited per ip", func(t *testing.T) {
		limiterInstance = NewIPRateLimiter(rate.Limit(0.001), 1)
		send := func(remote string) int {
			req := httptest.NewRequest(http.MethodGet, "/status/x", nil)
			req.RemoteAddr = remote
			req.Header.Set("Authorization", "Bearer s3cret")
			rec := httptest.NewRecorder()
			h(rec, req)
			return rec.Code
		}
		assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
		assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1001"))
		assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))
	})
}

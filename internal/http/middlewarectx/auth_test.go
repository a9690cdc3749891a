package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour, "todo")
	valid, err := maker.GenerateToken("user_1", "a@example.com")
	require.NoError(t, err)
	foreign, err := jwt.NewJWTMaker("other-secret", time.Hour, "todo").GenerateToken("user_1", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantUser       string
	}{
		{name: "valid token", authHeader: "Bearer " + valid, wantStatusCode: http.StatusOK, wantUser: "user_1"},
		{name: "missing header", authHeader: "", wantStatusCode: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic " + valid, wantStatusCode: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer abc.def.ghi", wantStatusCode: http.StatusUnauthorized},
		{name: "foreign signature", authHeader: "Bearer " + foreign, wantStatusCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = middlewarectx.UserIDFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.JWTMiddleware(maker, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantUser, gotUser)
			if tt.wantStatusCode == http.StatusUnauthorized {
				assert.JSONEq(t, `{"status":"Error","kind":"unauthenticated","error":"Unauthorized"}`, rr.Body.String())
			}
		})
	}
}

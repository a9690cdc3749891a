package remove

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
)

type MockService struct{ mock.Mock }

func (m *MockService) Delete(ctx context.Context, id, requesterID string) error {
	return m.Called(ctx, id, requesterID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		userID         string
		setupMocks     func(s *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "success",
			id:     "t1",
			userID: "user_a",
			setupMocks: func(s *MockService) {
				s.On("Delete", mock.Anything, "t1", "user_a").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"message":"Todo deleted successfully"}}`,
		},
		{
			name:   "foreign todo",
			id:     "t1",
			userID: "user_b",
			setupMocks: func(s *MockService) {
				s.On("Delete", mock.Anything, "t1", "user_b").Return(apperr.New(apperr.Forbidden, "Forbidden")).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","kind":"forbidden","error":"Forbidden"}`,
		},
		{
			name:   "missing todo",
			id:     "t404",
			userID: "user_a",
			setupMocks: func(s *MockService) {
				s.On("Delete", mock.Anything, "t404", "user_a").Return(apperr.New(apperr.NotFound, "Todo not found")).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","kind":"not_found","error":"Todo not found"}`,
		},
		{
			name:           "unauthenticated",
			id:             "t1",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","kind":"unauthenticated","error":"Unauthorized"}`,
		},
		{
			name:           "empty id",
			userID:         "user_a",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","kind":"invalid_argument","error":"id is required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockService)
			tt.setupMocks(s)
			handler := New(newNoopLogger(), s)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/todos/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserID, tt.userID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			s.AssertExpectations(t)
		})
	}
}

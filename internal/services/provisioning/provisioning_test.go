package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateUser(ctx context.Context, user models.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) InvalidateUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_Provision(t *testing.T) {
	tests := []struct {
		name        string
		req         models.ProvisionRequest
		setupMocks  func(r *RepoMock)
		wantCreated bool
		wantKind    apperr.Kind
		wantErr     bool
		wantCounter float64
	}{
		{
			name: "new user",
			req:  models.ProvisionRequest{ID: " user_1 ", Email: "a@example.com"},
			setupMocks: func(r *RepoMock) {
				r.On("CreateUser", mock.Anything, models.User{ID: "user_1", Email: "a@example.com"}).
					Return(true, nil).Once()
			},
			wantCreated: true,
			wantCounter: 1,
		},
		{
			name: "duplicate delivery",
			req:  models.ProvisionRequest{ID: "user_1", Email: "a@example.com"},
			setupMocks: func(r *RepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(false, nil).Once()
			},
		},
		{
			name:       "missing id",
			req:        models.ProvisionRequest{Email: "a@example.com"},
			setupMocks: func(_ *RepoMock) {},
			wantErr:    true,
			wantKind:   apperr.InvalidArgument,
		},
		{
			name:       "bad email",
			req:        models.ProvisionRequest{ID: "user_1", Email: "not-an-email"},
			setupMocks: func(_ *RepoMock) {},
			wantErr:    true,
			wantKind:   apperr.InvalidArgument,
		},
		{
			name: "email taken",
			req:  models.ProvisionRequest{ID: "user_2", Email: "a@example.com"},
			setupMocks: func(r *RepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(false, storage.ErrEmailTaken).Once()
			},
			wantErr:  true,
			wantKind: apperr.InvalidArgument,
		},
		{
			name: "storage failure",
			req:  models.ProvisionRequest{ID: "user_3", Email: "c@example.com"},
			setupMocks: func(r *RepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(false, errors.New("timeout")).Once()
			},
			wantErr:  true,
			wantKind: apperr.Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			tt.setupMocks(r)
			m := metrics.New(prometheus.NewRegistry())
			svc := NewService(r, nil, m, newNoopLogger())

			created, err := svc.Provision(context.Background(), tt.req, SourceWebhook)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
			}
			r.AssertExpectations(t)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantCounter, testutil.ToFloat64(m.UsersProvisioned.WithLabelValues(SourceWebhook)))
		})
	}
}

func TestService_Provision_InvalidatesCache(t *testing.T) {
	req := models.ProvisionRequest{ID: "user_1", Email: "a@example.com"}

	tests := []struct {
		name       string
		created    bool
		setupCache func(c *CacheMock)
	}{
		{
			name:    "new user drops cached snapshot",
			created: true,
			setupCache: func(c *CacheMock) {
				c.On("InvalidateUser", mock.Anything, "user_1").Return(nil).Once()
			},
		},
		{
			name:    "cache failure is not fatal",
			created: true,
			setupCache: func(c *CacheMock) {
				c.On("InvalidateUser", mock.Anything, "user_1").Return(errors.New("redis down")).Once()
			},
		},
		{
			name:       "duplicate delivery leaves cache alone",
			created:    false,
			setupCache: func(_ *CacheMock) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c := new(RepoMock), new(CacheMock)
			r.On("CreateUser", mock.Anything, mock.Anything).Return(tt.created, nil).Once()
			tt.setupCache(c)
			svc := NewService(r, c, metrics.New(prometheus.NewRegistry()), newNoopLogger())

			created, err := svc.Provision(context.Background(), req, SourceQueue)
			require.NoError(t, err)
			assert.Equal(t, tt.created, created)
			r.AssertExpectations(t)
			c.AssertExpectations(t)
			if !tt.created {
				c.AssertNotCalled(t, "InvalidateUser", mock.Anything, mock.Anything)
			}
		})
	}
}

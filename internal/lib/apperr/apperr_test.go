package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "plain app error",
			err:  New(NotFound, "user not found"),
			want: NotFound,
		},
		{
			name: "wrapped app error",
			err:  fmt.Errorf("services.todo.Create: %w", New(QuotaExceeded, "limit")),
			want: QuotaExceeded,
		},
		{
			name: "foreign error is unavailable",
			err:  errors.New("connection reset"),
			want: Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation todos does not exist")
	err := Wrap(Unavailable, "could not create todo", cause)

	assert.Equal(t, "could not create todo", MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "service unavailable", MessageOf(cause))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Wrap(Unavailable, "db down", errors.New("x"))))
	assert.True(t, IsRetryable(errors.New("unknown")))
	assert.False(t, IsRetryable(New(QuotaExceeded, "limit")))
	assert.False(t, IsRetryable(New(Forbidden, "not owner")))
	assert.False(t, IsRetryable(New(NotFound, "missing")))
	assert.False(t, IsRetryable(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticated))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(QuotaExceeded))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidArgument))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Unavailable))
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "forbidden: not owner", New(Forbidden, "not owner").Error())
	assert.Equal(t, "unavailable: db: boom", Wrap(Unavailable, "db", errors.New("boom")).Error())
}

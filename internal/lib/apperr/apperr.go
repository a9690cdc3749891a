// Package apperr описывает таксономию ошибок ядра: стабильный машинно-читаемый вид ошибки
// плюс сообщение для пользователя. Внутренняя причина хранится в Err и наружу не выдаётся.
package apperr

import (
	"errors"
	"net/http"
)

// Kind — вид ошибки.
type Kind string

const (
	// Unauthenticated — нет подтверждённой личности вызывающего.
	Unauthenticated Kind = "unauthenticated"
	// NotFound — пользователь или ресурс отсутствует.
	NotFound Kind = "not_found"
	// Forbidden — нарушение владения ресурсом.
	Forbidden Kind = "forbidden"
	// QuotaExceeded — пользователь без подписки достиг лимита.
	QuotaExceeded Kind = "quota_exceeded"
	// InvalidArgument — некорректный ввод.
	InvalidArgument Kind = "invalid_argument"
	// Unavailable — отказ хранилища. Единственный вид, который вызывающий может повторить.
	Unavailable Kind = "unavailable"
)

// Error — ошибка ядра.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку без внутренней причины.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку с внутренней причиной.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf возвращает вид ошибки. Всё, что не является *Error, считается Unavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unavailable
}

// MessageOf возвращает сообщение для пользователя.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "service unavailable"
}

// Is сообщает, относится ли err к виду kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable сообщает, можно ли вызывающему повторить операцию.
func IsRetryable(err error) bool {
	return Is(err, Unavailable)
}

// HTTPStatus сопоставляет вид ошибки HTTP-статусу.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Forbidden, QuotaExceeded:
		return http.StatusForbidden
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

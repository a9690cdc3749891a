// Package signature проверяет подписи входящих вебхуков провайдера идентичности
// (схема Svix: заголовки svix-id, svix-timestamp, svix-signature).
//
// Подпись проверяет SDK svix. Окно метки времени проверяется здесь по
// переданному времени, чтобы обработчик мог работать с подменяемыми часами.
package signature

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	// HeaderID — идентификатор доставки.
	HeaderID = "svix-id"
	// HeaderTimestamp — время отправки в секундах Unix.
	HeaderTimestamp = "svix-timestamp"
	// HeaderSignature — список подписей.
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
)

var (
	// ErrMissingHeaders — не передан один из обязательных заголовков.
	ErrMissingHeaders = errors.New("missing signature headers")
	// ErrInvalidTimestamp — метка времени не число или вне допустимого окна.
	ErrInvalidTimestamp = errors.New("invalid signature timestamp")
	// ErrNoMatch — ни одна подпись не совпала.
	ErrNoMatch = errors.New("no matching signature")
	// ErrInvalidSecret — секрет не в формате whsec_<base64>.
	ErrInvalidSecret = errors.New("invalid webhook secret")
)

// Verifier проверяет подписи одним секретом.
type Verifier struct {
	wh        *svix.Webhook
	tolerance time.Duration
}

// NewVerifier разбирает секрет вида "whsec_<base64>".
// tolerance ограничивает расхождение метки времени с текущим временем; 0 отключает проверку.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	const op = "signature.NewVerifier"
	if strings.TrimPrefix(secret, secretPrefix) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSecret)
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSecret, err)
	}
	return &Verifier{wh: wh, tolerance: tolerance}, nil
}

// Headers — значения заголовков подписи.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// Empty сообщает, что хотя бы один заголовок не передан.
func (h Headers) Empty() bool {
	return h.ID == "" || h.Timestamp == "" || h.Signature == ""
}

func (h Headers) header() http.Header {
	hdr := make(http.Header, 3)
	hdr.Set(HeaderID, h.ID)
	hdr.Set(HeaderTimestamp, h.Timestamp)
	hdr.Set(HeaderSignature, h.Signature)
	return hdr
}

// Verify проверяет подпись тела body на момент now.
func (v *Verifier) Verify(h Headers, body []byte, now time.Time) error {
	const op = "signature.Verify"
	if h.Empty() {
		return fmt.Errorf("%s: %w", op, ErrMissingHeaders)
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidTimestamp)
	}
	if v.tolerance > 0 {
		sent := time.Unix(ts, 0)
		if now.Sub(sent) > v.tolerance || sent.Sub(now) > v.tolerance {
			return fmt.Errorf("%s: %w", op, ErrInvalidTimestamp)
		}
	}

	if err := v.wh.VerifyIgnoringTimestamp(body, h.header()); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrNoMatch, err)
	}
	return nil
}

// Sign возвращает значение заголовка svix-signature для тела body.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) (string, error) {
	const op = "signature.Sign"
	sig, err := v.wh.Sign(id, ts, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sig, nil
}

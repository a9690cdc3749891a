// Package register принимает вебхук провайдера идентичности о создании пользователя.
//
// Подпись проверяется по заголовкам svix-id, svix-timestamp и svix-signature.
// Событие user.created создаёт пользователя без подписки, остальные события
// подтверждаются без обработки.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/signature"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/services/provisioning"
)

// EventUserCreated — тип события о новом пользователе.
const EventUserCreated = "user.created"

const maxBodySize = 1 << 20

// Service описывает создание пользователя.
type Service interface {
	Provision(ctx context.Context, req models.ProvisionRequest, source string) (bool, error)
}

// Handler обрабатывает вебхуки провайдера идентичности.
type Handler struct {
	log      *slog.Logger
	service  Service
	verifier *signature.Verifier
	clock    clock.Clock
}

// EmailAddress — адрес почты пользователя в событии.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// Payload — тело события.
type Payload struct {
	Type string `json:"type"`
	Data struct {
		ID                    string         `json:"id"`
		EmailAddresses        []EmailAddress `json:"email_addresses"`
		PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	} `json:"data"`
}

// PrimaryEmail возвращает основной адрес пользователя.
func (p *Payload) PrimaryEmail() (string, bool) {
	for _, e := range p.Data.EmailAddresses {
		if e.ID == p.Data.PrimaryEmailAddressID {
			return e.EmailAddress, true
		}
	}
	return "", false
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, verifier *signature.Verifier, clk clock.Clock) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		clock:    clk,
	}
}

// ServeHTTP godoc
// @Summary Вебхук создания пользователя
// @Description Принимает подписанное событие провайдера идентичности и создаёт пользователя без подписки.
// @Tags Webhooks
// @Accept  json
// @Produce  plain
// @Param svix-id header string true "ID доставки"
// @Param svix-timestamp header string true "Время отправки, Unix секунды"
// @Param svix-signature header string true "Подписи v1,<base64>"
// @Success 200 {string} string "Webhook received successfully"
// @Failure 400 {string} string "Некорректная подпись или тело"
// @Failure 500 {string} string "Ошибка хранилища"
// @Router /webhooks/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	headers := signature.Headers{
		ID:        r.Header.Get(signature.HeaderID),
		Timestamp: r.Header.Get(signature.HeaderTimestamp),
		Signature: r.Header.Get(signature.HeaderSignature),
	}
	if headers.Empty() {
		log.Warn("missing signature headers")
		h.plain(w, r, http.StatusBadRequest, "Error occured - No Svix headers")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		h.plain(w, r, http.StatusBadRequest, "Error occured - Invalid body")
		return
	}

	if err = h.verifier.Verify(headers, body, h.clock.Now()); err != nil {
		log.Warn("invalid webhook signature", sl.Err(err))
		h.plain(w, r, http.StatusBadRequest, "Error occured - Invalid signature for webhook")
		return
	}

	var payload Payload
	if err = json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		h.plain(w, r, http.StatusBadRequest, "Error occured - Invalid payload")
		return
	}

	if payload.Type != EventUserCreated {
		log.Info("ignored webhook event", slog.String("type", payload.Type))
		h.plain(w, r, http.StatusOK, "Webhook received successfully")
		return
	}

	email, ok := payload.PrimaryEmail()
	if !ok {
		log.Warn("no primary email", slog.String("user_id", payload.Data.ID))
		h.plain(w, r, http.StatusBadRequest, "Error occured - No primary email")
		return
	}

	_, err = h.service.Provision(r.Context(), models.ProvisionRequest{
		ID:    payload.Data.ID,
		Email: email,
	}, provisioning.SourceWebhook)
	if err != nil {
		var appErr *apperr.Error
		// Отказ хранилища отдаём как 500, чтобы провайдер повторил доставку.
		if errors.As(err, &appErr) && appErr.Kind != apperr.Unavailable {
			h.plain(w, r, http.StatusBadRequest, "Error occured - Failed to create user")
			return
		}
		h.plain(w, r, http.StatusInternalServerError, "Error occured - Failed to create user")
		return
	}

	h.plain(w, r, http.StatusOK, "Webhook received successfully")
}

func (h *Handler) plain(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.PlainText(w, r, msg)
}

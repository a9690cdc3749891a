// Package models содержит доменные структуры: пользователя с полями подписки
// и принадлежащие ему задачи.
package models

import "time"

// User — владелец задач. Идентификатор выдаётся провайдером идентичности.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	IsSubscribed     bool       `json:"is_subscribed"`
	SubscriptionEnds *time.Time `json:"subscription_ends,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SubscriptionExpired сообщает, что окно подписки закончилось строго до now.
func (u *User) SubscriptionExpired(now time.Time) bool {
	return u.SubscriptionEnds != nil && u.SubscriptionEnds.Before(now)
}

// ProvisionRequest — данные о новом пользователе от провайдера идентичности.
type ProvisionRequest struct {
	ID    string `json:"id" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

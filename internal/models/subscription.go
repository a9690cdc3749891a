package models

import "time"

// SubscriptionState — результат сверки подписки.
type SubscriptionState string

const (
	// StateActive — окно подписки ещё не закончилось.
	StateActive SubscriptionState = "active"
	// StateInactive — пользователь не подписан и сверка ничего не изменила.
	StateInactive SubscriptionState = "inactive"
	// StateExpired — окно закончилось, и сверка только что записала отмену подписки.
	StateExpired SubscriptionState = "expired"
)

// SubscriptionStatus — эффективное состояние подписки после сверки.
type SubscriptionStatus struct {
	IsSubscribed     bool              `json:"isSubscribed"`
	SubscriptionEnds *time.Time        `json:"subscriptionEnds"`
	State            SubscriptionState `json:"state"`
}

// StatusOf строит статус из сохранённых полей пользователя без сверки с часами.
func StatusOf(u *User) SubscriptionStatus {
	state := StateInactive
	if u.IsSubscribed {
		state = StateActive
	}
	return SubscriptionStatus{
		IsSubscribed:     u.IsSubscribed,
		SubscriptionEnds: u.SubscriptionEnds,
		State:            state,
	}
}

// Package quota решает, может ли пользователь создать ещё одну задачу.
package quota

import (
	"fmt"

	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// DefaultFreeLimit — сколько задач может держать пользователь без подписки.
const DefaultFreeLimit = 3

// Policy — правило лимита задач.
type Policy struct {
	FreeLimit int
}

// New создаёт правило с лимитом freeLimit. Неположительный лимит заменяется на DefaultFreeLimit.
func New(freeLimit int) Policy {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return Policy{FreeLimit: freeLimit}
}

// CanCreate сообщает, можно ли создать задачу при уже сверенном статусе и
// числе задач, посчитанном в момент решения. Подписчики не ограничены.
func (p Policy) CanCreate(status models.SubscriptionStatus, count int) bool {
	if status.IsSubscribed {
		return true
	}
	return count < p.FreeLimit
}

// Message — текст отказа для пользователя.
func (p Policy) Message() string {
	return fmt.Sprintf("Free users can only create up to %d todos. Please subscribe to our paid plan to write more awesome todos", p.FreeLimit)
}

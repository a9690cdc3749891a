// Package clock предоставляет источник текущего времени, который можно подменять в тестах.
// Часы построены на clockwork; сервисам нужен только Now.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

var system = clockwork.NewRealClock()

// Real — системные часы в UTC.
type Real struct{}

// Now возвращает текущее время в UTC.
func (Real) Now() time.Time {
	return system.Now().UTC()
}

// Manual — часы с ручным управлением. Безопасны для конкурентного использования.
type Manual struct {
	mu   sync.Mutex
	fake *clockwork.FakeClock
}

// NewManual создаёт часы, показывающие время now.
func NewManual(now time.Time) *Manual {
	return &Manual{fake: clockwork.NewFakeClockAt(now)}
}

// Now возвращает установленное время.
func (m *Manual) Now() time.Time {
	return m.fake.Now()
}

// Set устанавливает текущее время.
func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fake.Advance(now.Sub(m.fake.Now()))
}

// Advance сдвигает часы вперёд на d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fake.Advance(d)
}

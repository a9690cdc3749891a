package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_SubscriptionExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	tests := []struct {
		name string
		ends *time.Time
		want bool
	}{
		{name: "never subscribed", ends: nil, want: false},
		{name: "ended a second ago", ends: &past, want: true},
		{name: "ends exactly now", ends: &now, want: false},
		{name: "ends in future", ends: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{ID: "user_1", SubscriptionEnds: tt.ends, IsSubscribed: tt.ends != nil}
			assert.Equal(t, tt.want, u.SubscriptionExpired(now))
		})
	}
}

func TestStatusOf(t *testing.T) {
	ends := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	active := StatusOf(&User{IsSubscribed: true, SubscriptionEnds: &ends})
	assert.Equal(t, StateActive, active.State)
	assert.True(t, active.IsSubscribed)
	assert.Equal(t, &ends, active.SubscriptionEnds)

	inactive := StatusOf(&User{})
	assert.Equal(t, StateInactive, inactive.State)
	assert.False(t, inactive.IsSubscribed)
	assert.Nil(t, inactive.SubscriptionEnds)
}

func TestTodo_OwnedBy(t *testing.T) {
	todo := &Todo{ID: "t1", UserID: "user_a"}

	assert.True(t, todo.OwnedBy("user_a"))
	assert.False(t, todo.OwnedBy("user_b"))
	assert.False(t, todo.OwnedBy(""))
}

package models

import "time"

// Todo — задача, принадлежащая пользователю.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnedBy сообщает, принадлежит ли задача пользователю userID.
func (t *Todo) OwnedBy(userID string) bool {
	return t.UserID == userID
}

// TodoRequest используется для приёма названия задачи из JSON-запроса.
type TodoRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// TodoFilter — параметры выборки задач владельца.
type TodoFilter struct {
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}

// TodoPage — одна страница выборки.
type TodoPage struct {
	Items       []*Todo `json:"todos"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
}

package model

import "time"

type Teacher struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Office    *string   `json:"office,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для удобства (не из БД)
	User *User `json:"user,omitempty"`
}

package model

import "time"

type Parent struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	StudentName  string    `json:"student_name"`
	StudentClass string    `json:"student_class"`
	CreatedAt    time.Time `json:"created_at"`

	// Дополнительные поля для удобства (не из БД)
	User *User `json:"user,omitempty"`
}

package models

import "time"

// ChatRecord is one question/answer exchange with its supporting sources.
type ChatRecord struct {
	ID        string    `json:"chat_id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Sources   []Passage `json:"sources" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

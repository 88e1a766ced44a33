package model

import "time"

// SentMessage is a delivered email recorded in the local sent log.
type SentMessage struct {
	ID        string    `json:"id" db:"id"`
	MessageID string    `json:"message_id" db:"message_id"`
	To        string    `json:"to" db:"recipient"`
	ToName    string    `json:"to_name" db:"recipient_name"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
}

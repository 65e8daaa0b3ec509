package domain

import "time"

// ContactMessage is an accepted contact form submission, after truncation.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is the destination-agnostic owner notification sent after a
// contact message was delivered.
type Alert struct {
	ID      string
	Title   string
	Body    string
	ReplyTo string
	URL     string
}

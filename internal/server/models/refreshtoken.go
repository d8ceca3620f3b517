package models

import "time"

// RefreshToken is a server-stored, revocable sign-in session.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

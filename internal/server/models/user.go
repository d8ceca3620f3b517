package models

import "time"

// User is an account able to sign in. Only the configured owner is admitted
// to the admin panel; any other account is treated as a non-owner identity.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

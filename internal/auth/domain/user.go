package domain

import "time"

// User is a registered identity. Email is stored normalized (trimmed,
// lower-cased) and is unique across the store.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2id PHC string, never leaves the service layer
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package auth

import "time"

// Credential is the persisted login record for a user account.
type Credential struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

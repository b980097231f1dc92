// Package models defines server-side data models persisted in the metadata store.
package models

import "time"

// User is a registered principal. PasswordHash is a bcrypt digest, never the
// plaintext.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}

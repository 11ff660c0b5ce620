// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered diary account.
//
// The email address is the identity every record in the system is scoped to:
// locations and memories carry the owner's email, and the JWT subject claim
// holds it too. We still generate an internal string ID (xid) as the primary
// key so the identity column can stay a plain UNIQUE index.
//
// PasswordHash is empty for accounts created through GitHub sign-in — those
// users never set a password, and an empty hash never verifies.
type User struct {
	ID           string    `json:"-"     db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name"  db:"name"`
	PasswordHash string    `json:"-"     db:"password_hash"`
	CreatedAt    time.Time `json:"-"     db:"created_at"`
}

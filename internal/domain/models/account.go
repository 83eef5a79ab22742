// internal/domain/models/account.go
package models

import "time"

// Account is the identity-provider record behind a profile. The uid is shared
// with the profile document.
type Account struct {
	UID          string     `bson:"_id"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastSignInAt *time.Time `bson:"last_sign_in_at,omitempty"`
}

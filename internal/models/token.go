package models

import "time"

// TokenClaims is the decoded payload of a verified access token.
type TokenClaims struct {
	UserID    int32     `json:"user_id"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

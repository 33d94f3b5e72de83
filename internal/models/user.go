package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the decoded shape of the bearer token. The client parses it
// without signature verification, only to read identity and expiry.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

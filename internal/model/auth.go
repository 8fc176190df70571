package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims for an authenticated API caller
type UserClaims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

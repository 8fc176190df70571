package service

import "errors"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	errCooldown     = errors.New("cooldown active")
)

package repo

import "errors"

// Sentinel errors shared by the memory and postgres backends.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

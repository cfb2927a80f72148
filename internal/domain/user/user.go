package user

import "time"

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time  `json:"registered"`
	LastLogin    *time.Time `json:"lastLogin"`
	Active       bool       `json:"isActive"`
}

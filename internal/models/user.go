package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// UserInfo is the public part of a user returned alongside tokens
type UserInfo struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Points int    `json:"points"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// Info strips the password hash and timestamps.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Points: u.Points}
}

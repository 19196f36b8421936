package models

import (
	"encoding/json"
	"strings"
)

// TokenPair - пара токенов сессии. Пишется в хранилище только целиком.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete - обе половины пары заполнены.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// User - снимок профиля, отданный API при входе. Только для отображения.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName - "Имя Фамилия", либо email, если имя не заполнено.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}

	return u.Email
}

// ParseUser разбирает сохранённый снимок. Литерал "undefined" считается битым.
func ParseUser(raw string) (*User, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == "null" {
		return nil, false
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}

	return &u, true
}

// LoginRequest - тело POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult - ответ POST /auth/login: пара и сырой снимок пользователя (если API его вернуло).
type LoginResult struct {
	Pair TokenPair
	User json.RawMessage
}

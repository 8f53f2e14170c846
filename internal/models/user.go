// Package models содержит доменные записи коллекций, сессии и коды подтверждения.
package models

import (
	"strings"
	"time"
)

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя. Email служит первичным ключом,
// всегда хранится в нижнем регистре.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identifiers возвращает email как единственный идентификатор пользователя.
func (u User) Identifiers() []string {
	return []string{u.Email}
}

// NormalizeEmail приводит email к каноническому виду.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidRole сообщает, известна ли роль.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserView — пользователь без хеша пароля, для ответов API.
type UserView struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// View возвращает представление пользователя без секретов.
func (u User) View() UserView {
	return UserView{Email: u.Email, Role: u.Role, Verified: u.Verified, CreatedAt: u.CreatedAt}
}

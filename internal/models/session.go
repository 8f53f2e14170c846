package models

import "time"

// Session связывает непрозрачный токен с email субъекта на фиксированный срок.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Назначение кода подтверждения.
const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// VerificationCode — одноразовый код для пары (email, purpose).
type VerificationCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
	Attempts  int       `json:"attempts"`
}

// CodeMessage — сообщение в очередь писем с кодом для доставки.
type CodeMessage struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
}

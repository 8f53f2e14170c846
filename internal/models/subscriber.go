package models

import "time"

// Subscriber — подписчик рассылки.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Subscriber) Identifiers() []string {
	return []string{s.Email}
}

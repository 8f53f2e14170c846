package models

import "time"

// Report — жалоба пользователя на запись каталога.
type Report struct {
	ID         string     `json:"id"`
	TargetType string     `json:"targetType"`
	TargetID   string     `json:"targetId"`
	Reason     string     `json:"reason"`
	Reporter   string     `json:"reporter,omitempty"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Статусы модерации групп и бизнес-листингов.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Group — сообщество в каталоге. Identifiers содержит нормализованный список ссылок
// на группу (мессенджеры, сайты), уникальных в пределах коллекции.
type Group struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Links       []string  `json:"identifiers"`
	CategoryID  string    `json:"categoryId"`
	LocationID  string    `json:"locationId"`
	ClicksCount int       `json:"clicksCount"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      string    `json:"status"`
	SubmittedBy string    `json:"submittedBy,omitempty"`
}

func (g Group) Identifiers() []string {
	return g.Links
}

// UnmarshalJSON принимает и старую форму записи с полями link/links
// и приводит всё к одному списку identifiers.
func (g *Group) UnmarshalJSON(data []byte) error {
	type plain Group
	var aux struct {
		plain
		Link      string   `json:"link"`
		LinksList []string `json:"links"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*g = Group(aux.plain)
	g.Links = NormalizeIdentifiers(append(append(g.Links, aux.Link), aux.LinksList...)...)
	return nil
}

// NormalizeIdentifiers убирает пробелы, пустые значения и повторы, сохраняя порядок.
func NormalizeIdentifiers(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

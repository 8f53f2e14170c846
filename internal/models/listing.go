package models

import "time"

// BusinessListing — карточка бизнеса. Сайт уникален в пределах коллекции.
type BusinessListing struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Website     string    `json:"website"`
	Description string    `json:"description,omitempty"`
	CategoryID  string    `json:"categoryId"`
	LocationID  string    `json:"locationId"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (l BusinessListing) Identifiers() []string {
	return []string{l.Website}
}

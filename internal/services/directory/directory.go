// Package directory содержит бизнес-логику разделов каталога: группы,
// кампании, подписчики, жалобы и бизнес-листинги.
//
// Каждый раздел хранится отдельной коллекцией; все изменения идут через
// collection.Mutate, вставки с доменными идентификаторами проверяются
// dedup.CheckInsert внутри той же мутации.
package directory

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Ключи коллекций в хранилище.
const (
	GroupsKey      = "groups"
	CampaignsKey   = "campaigns"
	SubscribersKey = "subscribers"
	ReportsKey     = "reports"
	ListingsKey    = "listings"
)

func newID() string {
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// update находит запись по id и применяет к ней apply.
func update[T any](items []T, id func(T) string, target string, apply func(*T) error) ([]T, error) {
	i := slices.IndexFunc(items, func(item T) bool { return id(item) == target })
	if i < 0 {
		return nil, apperr.ErrNotFound
	}
	if err := apply(&items[i]); err != nil {
		return nil, err
	}
	return items, nil
}

func find[T any](items []T, id func(T) string, target string) (*T, error) {
	i := slices.IndexFunc(items, func(item T) bool { return id(item) == target })
	if i < 0 {
		return nil, apperr.ErrNotFound
	}
	return &items[i], nil
}

func validModerationStatus(status string) bool {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}

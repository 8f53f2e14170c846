// Package storage описывает контракт key-value хранилища, поверх которого
// строятся коллекции, сессии и коды подтверждения.
//
// Хранилище оперирует непрозрачными байтами под строковыми ключами. Единственная
// атомарная операция Update: оптимистичное чтение-изменение-запись одного ключа,
// которая возвращает apperr.ErrConflict, если ключ изменился между чтением и записью.
package storage

import (
	"context"
	"time"
)

// Mutation описывает, что Update должен сделать с ключом после чтения.
type Mutation struct {
	Value  []byte        // Новое значение
	TTL    time.Duration // Время жизни ключа, 0 без истечения
	Delete bool          // Удалить ключ вместо записи
	Skip   bool          // Ничего не записывать
}

// UpdateFunc получает текущее значение ключа и решает, как его изменить.
// Ошибка, возвращённая функцией, прерывает Update без записи и передаётся вызывающему как есть.
type UpdateFunc func(current []byte, found bool) (Mutation, error)

// Backend — key-value хранилище без транзакций между ключами.
type Backend interface {
	// Get возвращает значение ключа; found=false, если ключа нет или он истёк.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set безусловно перезаписывает ключ.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete удаляет ключ; отсутствие ключа не ошибка.
	Delete(ctx context.Context, key string) error
	// Update выполняет условную запись, см. UpdateFunc.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает соединения.
	Close() error
}

// Package dedup проверяет уникальность доменных идентификаторов внутри коллекции.
//
// Сравнение точное и чувствительное к регистру. Нормализация (например, приведение
// email к нижнему регистру) выполняется на границе, до вызова CheckInsert.
// CheckInsert нужно вызывать внутри transform функции collection.Mutate,
// тогда две параллельные вставки одного идентификатора не пройдут обе.
package dedup

import (
	"fmt"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
)

// Identified — запись с нормализованным упорядоченным списком идентификаторов.
type Identified interface {
	Identifiers() []string
}

// DuplicateIdentifierError сообщает, какой идентификатор уже занят.
type DuplicateIdentifierError struct {
	ID string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier %q", e.ID)
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return apperr.ErrDuplicateIdentifier
}

// CheckInsert возвращает *DuplicateIdentifierError, если хотя бы один идентификатор
// кандидата уже используется какой-либо записью existing или повторяется в самом кандидате.
func CheckInsert[R Identified](existing []R, candidate []string) error {
	used := make(map[string]struct{})
	for _, rec := range existing {
		for _, id := range rec.Identifiers() {
			used[id] = struct{}{}
		}
	}
	for _, id := range candidate {
		if _, ok := used[id]; ok {
			return &DuplicateIdentifierError{ID: id}
		}
		used[id] = struct{}{}
	}
	return nil
}

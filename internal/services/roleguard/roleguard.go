// Package roleguard защищает заданные учётные записи от удаления и смены роли.
//
// Проверки не зависят от роли вызывающего: защищённого субъекта не может
// изменить никто, включая администраторов.
package roleguard

import (
	"fmt"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Guard хранит множество защищённых email.
type Guard struct {
	protected map[string]struct{}
}

// New создает Guard; email нормализуются.
func New(protected []string) *Guard {
	g := &Guard{protected: make(map[string]struct{}, len(protected))}
	for _, p := range protected {
		if p = models.NormalizeEmail(p); p != "" {
			g.protected[p] = struct{}{}
		}
	}
	return g
}

// IsProtected сообщает, защищён ли email.
func (g *Guard) IsProtected(email string) bool {
	_, ok := g.protected[models.NormalizeEmail(email)]
	return ok
}

// CheckMutableRole возвращает apperr.ErrForbidden для защищённого target.
func (g *Guard) CheckMutableRole(target, newRole string) error {
	const op = "roleguard.CheckMutableRole"
	if g.IsProtected(target) {
		return fmt.Errorf("%s: role of %s cannot be changed to %q: %w", op, models.NormalizeEmail(target), newRole, apperr.ErrForbidden)
	}
	return nil
}

// CheckDeletable возвращает apperr.ErrForbidden для защищённого target.
func (g *Guard) CheckDeletable(target string) error {
	const op = "roleguard.CheckDeletable"
	if g.IsProtected(target) {
		return fmt.Errorf("%s: %s cannot be deleted: %w", op, models.NormalizeEmail(target), apperr.ErrForbidden)
	}
	return nil
}

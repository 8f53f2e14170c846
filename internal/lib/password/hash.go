// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// GetHash создает bcrypt-хеш пароля для безопасного хранения.
// CompareHash сравнивает исходный bcrypt-хеш с введённым паролем, проверяя их соответствие.
// CheckPolicy проверяет минимальную длину пароля до хеширования.
package password

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
)

// bcrypt учитывает только первые 72 байта
const maxLength = 72

// CheckPolicy возвращает apperr.ErrInvalidInput, если пароль короче minLength символов
// или длиннее, чем может обработать bcrypt.
func CheckPolicy(password string, minLength int) error {
	const op = "password.CheckPolicy"
	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("%s: password must be at least %d characters: %w", op, minLength, apperr.ErrInvalidInput)
	}
	if len(password) > maxLength {
		return fmt.Errorf("%s: password must be at most %d bytes: %w", op, maxLength, apperr.ErrInvalidInput)
	}
	return nil
}

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

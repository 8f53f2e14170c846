// Package apperr содержит общие ошибки приложения.
//
// Слои хранилища и сервисов оборачивают эти значения через fmt.Errorf("%s: %w", op, err),
// а HTTP-слой сопоставляет их со статусами ответа через errors.Is.
package apperr

import "errors"

var (
	// ErrStorageUnavailable — хранилище недоступно или не сконфигурировано.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentifier — идентификатор уже занят другой записью коллекции.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrInvalidInput — входные данные не прошли проверку.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized — сессия отсутствует, неизвестна или истекла.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden — операция запрещена для этого субъекта.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredential — код подтверждения неверен, истёк или уже использован.
	ErrInvalidCredential = errors.New("expired or invalid credential")
	// ErrConflict — исчерпан лимит повторов оптимистичной записи.
	ErrConflict = errors.New("conflict")
	// ErrCorruptData — сохранённое значение не удаётся разобрать.
	ErrCorruptData = errors.New("corrupt data")
)

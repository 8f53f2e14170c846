// Package random генерирует криптостойкие токены и числовые коды.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// HexString возвращает size случайных байт в hex-кодировке (длина строки 2*size).
func HexString(size int) (string, error) {
	const op = "random.HexString"
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(b), nil
}

// NumericCode возвращает строку из length случайных цифр, ведущие нули сохраняются.
func NumericCode(length int) (string, error) {
	const op = "random.NumericCode"
	if length <= 0 {
		return "", fmt.Errorf("%s: invalid length %d", op, length)
	}
	var sb strings.Builder
	sb.Grow(length)
	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

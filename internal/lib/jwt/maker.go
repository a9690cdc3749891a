// Package jwt реализует выпуск и проверку JWT, которыми провайдер идентичности
// подтверждает личность пользователя.
//
// Идентификатор пользователя передаётся в стандартном claim "sub".
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя с указанным идентификатором и почтой.
	GenerateToken(userID, email string) (string, error)
	// ParseToken проверяет подпись, срок действия и издателя и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на HS256 с общим секретом.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни выпускаемого токена.
	issuer    string        // Ожидаемый издатель; пустая строка отключает проверку.
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа, TTL и издателя.
func NewJWTMaker(secretKey string, ttl time.Duration, issuer string) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    issuer,
	}
}

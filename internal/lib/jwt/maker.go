// Package jwt выпускает и проверяет JWT токены доступа к API.
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор токенов доступа.
type Maker interface {
	// GenerateToken выпускает токен для пользователя.
	GenerateToken(userID, email, adminType string) (string, error)
	// ParseToken проверяет подпись и срок действия и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены секретом HS256 и выдаёт их на tokenTTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	issuer    string
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    "datesantiere",
	}
}

package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims данные пользователя внутри токена. Идентификатор пользователя хранится в Subject.
type CustomClaims struct {
	Email     string `json:"email"`
	AdminType string `json:"admin_type,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из токена.
func (c *CustomClaims) UserID() string {
	return c.Subject
}

// GenerateToken создает токен, действующий tokenTTL с момента выпуска.
func (j *MakerImpl) GenerateToken(userID, email, adminType string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Email:     email,
		AdminType: adminType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken разбирает токен и отклоняет подписи не HMAC.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(j.issuer))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: missing subject", op)
	}
	return claims, nil
}

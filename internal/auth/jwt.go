// Package auth выдаёт и проверяет JWT, идентифицирующие игрока (actor)
// в запросах хоста.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "voxelforge"

// ErrInvalidToken - токен не прошёл проверку.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims - содержимое токена. Subject - UUID игрока.
type Claims struct {
	IsOp bool `json:"is_op,omitempty"`
	jwt.RegisteredClaims
}

// Identity - проверенный владелец токена.
type Identity struct {
	Actor      uuid.UUID
	IsOperator bool
}

// Authenticator подписывает и проверяет токены HS256.
type Authenticator struct {
	secret []byte
	expiry time.Duration
}

// NewAuthenticator создаёт аутентификатор. secret в base64 (не короче 32
// байт после декодирования); пустой секрет заменяется случайным, и токены
// не переживают перезапуск.
func NewAuthenticator(secret string) (*Authenticator, error) {
	a := &Authenticator{expiry: 24 * time.Hour}
	if secret == "" {
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, fmt.Errorf("не удалось сгенерировать JWT секрет: %w", err)
		}
		logging.Warn("JWT секрет не задан, используется случайный")
		return a, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("JWT секрет: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("JWT секрет должен быть не короче 32 байт")
	}
	a.secret = decoded
	return a, nil
}

// Issue выдаёт токен игроку.
func (a *Authenticator) Issue(actor uuid.UUID, isOp bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		IsOp: isOp,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   actor.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate проверяет подпись, срок и субъект токена.
func (a *Authenticator) Validate(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	actor, err := uuid.Parse(claims.Subject)
	if err != nil || actor == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.Subject)
	}
	return Identity{Actor: actor, IsOperator: claims.IsOp}, nil
}

// GenerateSecureSecret возвращает случайный секрет в base64.
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

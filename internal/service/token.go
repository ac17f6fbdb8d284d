package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

var ErrInvalidToken = errors.New("token: invalid access token")

// AccessClaims - клеймы access токена: пользователь, роль и профиль бренда или креатора.
type AccessClaims struct {
	Role      string `json:"role"`
	ProfileID string `json:"pid"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет access токены. Пароли и refresh живут в сервисе идентификации.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateAccess выпускает токен для principal. Используется CLI и тестами.
func (m *TokenManager) GenerateAccess(p entity.Principal) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)

	claims := AccessClaims{
		Role:      string(p.Role),
		ProfileID: p.ProfileID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseAccess проверяет подпись и срок и собирает principal из клеймов.
func (m *TokenManager) ParseAccess(raw string) (entity.Principal, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return entity.Principal{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return entity.Principal{}, ErrInvalidToken
	}
	role := valueobject.Role(claims.Role)
	if !role.IsValid() {
		return entity.Principal{}, ErrInvalidToken
	}

	p := entity.Principal{UserID: userID, Role: role}
	// у администратора профиля нет
	if role != valueobject.RoleAdmin {
		if p.ProfileID, err = uuid.Parse(claims.ProfileID); err != nil {
			return entity.Principal{}, ErrInvalidToken
		}
	}
	return p, nil
}

package jwt

import (
	"fmt"
	"time"

	"auth_backend/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SubjectAccess            = "AccessToken"
	SubjectRefresh           = "RefreshToken"
	SubjectEmailVerification = "EmailVerification"

	idClaim   = "id"
	typeClaim = "type"
)

// * Manager выпускает и проверяет все виды токенов одним симметричным ключом
type Manager struct {
	secret          []byte
	accessTTL       time.Duration
	refreshTTL      time.Duration
	verificationTTL time.Duration
}

func New(secret string, accessTTL, refreshTTL, verificationTTL time.Duration) *Manager {
	return &Manager{
		secret:          []byte(secret),
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
		verificationTTL: verificationTTL,
	}
}

func (m *Manager) NewAccessToken(userID string) (string, error) {
	return m.sign(jwt.MapClaims{
		"sub":   SubjectAccess,
		idClaim: userID,
	}, m.accessTTL)
}

func (m *Manager) NewRefreshToken(userID string) (string, error) {
	return m.sign(jwt.MapClaims{
		"sub":   SubjectRefresh,
		idClaim: userID,
	}, m.refreshTTL)
}

// * NewEmailVerificationToken выпускает токен подтверждения почты.
// Клейм type защищает от переиспользования токена не по назначению.
func (m *Manager) NewEmailVerificationToken(email, purpose string) (string, error) {
	return m.sign(jwt.MapClaims{
		"sub":     SubjectEmailVerification,
		idClaim:   email,
		typeClaim: purpose,
	}, m.verificationTTL)
}

// * Validate проверяет только подпись и срок действия
func (m *Manager) Validate(token string) bool {
	_, err := m.claims(token)
	return err == nil
}

// * IsAccessToken возвращает ошибку, если токен вообще не разбирается;
// false без ошибки означает валидный токен другого вида
func (m *Manager) IsAccessToken(token string) (bool, error) {
	claims, err := m.claims(token)
	if err != nil {
		return false, apperr.ErrUnsupportedJWT
	}

	sub, _ := claims["sub"].(string)

	return sub == SubjectAccess, nil
}

func (m *Manager) UserID(token string) (string, error) {
	const op = "jwt.UserID"

	claims, err := m.claims(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, ok := claims[idClaim].(string)
	if !ok {
		return "", fmt.Errorf("%s: missing id claim", op)
	}

	return id, nil
}

func (m *Manager) RemainingDuration(token string) (time.Duration, error) {
	const op = "jwt.RemainingDuration"

	claims, err := m.claims(token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, fmt.Errorf("%s: missing exp claim", op)
	}

	return time.Until(exp.Time), nil
}

func (m *Manager) ValidateEmailVerificationToken(token, purpose string) bool {
	claims, err := m.claims(token)
	if err != nil {
		return false
	}

	sub, _ := claims["sub"].(string)
	typ, _ := claims[typeClaim].(string)

	return sub == SubjectEmailVerification && typ == purpose
}

func (m *Manager) EmailFromVerificationToken(token string) (string, error) {
	const op = "jwt.EmailFromVerificationToken"

	claims, err := m.claims(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	email, ok := claims[idClaim].(string)
	if !ok {
		return "", fmt.Errorf("%s: missing id claim", op)
	}

	return email, nil
}

func (m *Manager) sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	const op = "jwt.sign"

	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	// * jti делает токены уникальными даже при выпуске в одну секунду
	claims["jti"] = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (m *Manager) claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

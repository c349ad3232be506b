package session

import (
	"OrderFlow/entity"
	"OrderFlow/internal/config"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "orderflow"
	defaultTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims are carried by a session token.
type Claims struct {
	UserID    string `json:"user_id"`
	Phone     string `json:"phone"`
	IsNewUser bool   `json:"is_new_user"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 session tokens.
type Service struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewSessionService(conf *config.Config) (*Service, error) {
	if conf.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is not configured")
	}
	ttl := conf.Session.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	return &Service{secretKey: []byte(conf.Session.Secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for a verified user.
func (s *Service) Issue(res entity.AuthResult) (string, *entity.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		UserID:    res.UserID,
		Phone:     res.PhoneNumber,
		IsNewUser: res.IsNewUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   res.UserID,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, &entity.Session{
		UserID:    res.UserID,
		Phone:     res.PhoneNumber,
		IsNewUser: res.IsNewUser,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse verifies a token and returns its session.
func (s *Service) Parse(tokenString string) (*entity.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	session := &entity.Session{
		UserID:    claims.UserID,
		Phone:     claims.Phone,
		IsNewUser: claims.IsNewUser,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

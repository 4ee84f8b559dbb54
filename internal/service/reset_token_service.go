package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	resetTokenTTL  = 30 * time.Minute
	resetTokenType = "password_reset"
	resetIssuer    = "planfusion"
)

// ResetTokenService firma y valida tokens de reseteo de password.
type ResetTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type ResetClaims struct {
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// IssuedResetToken es el token firmado mas el jti que se persiste.
type IssuedResetToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

func NewResetTokenService(secret string, ttl time.Duration) *ResetTokenService {
	if ttl <= 0 {
		ttl = resetTokenTTL
	}
	return &ResetTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: resetIssuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ResetTokenService) Issue(email string) (IssuedResetToken, error) {
	if len(s.secret) == 0 {
		return IssuedResetToken{}, ErrResetTokenInvalid
	}
	now := s.now()
	jti := uuid.NewString()
	expiresAt := now.Add(s.ttl)
	claims := ResetClaims{
		Email:     email,
		TokenType: resetTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return IssuedResetToken{}, err
	}
	return IssuedResetToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

func (s *ResetTokenService) Parse(tokenString string) (ResetClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return ResetClaims{}, ErrResetTokenInvalid
	}
	var claims ResetClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ResetClaims{}, ErrResetTokenExpired
		}
		return ResetClaims{}, ErrResetTokenInvalid
	}
	if claims.TokenType != resetTokenType || claims.ID == "" || claims.Email == "" || claims.Subject != claims.Email {
		return ResetClaims{}, ErrResetTokenInvalid
	}
	return claims, nil
}

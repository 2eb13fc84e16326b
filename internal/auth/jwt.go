package auth

import (
	"errors"
	"strconv"
	"time"

	"store-backend/internal/audit"
	"store-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "store-backend"
	tokenTTL    = 24 * time.Hour
)

var errBadSubject = errors.New("token subject is not a user id")

// Claims: Subject alanı kullanıcı id'sini taşır
type Claims struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal: token'ı doğrulanmış istek sahibi
type Principal struct {
	UserID uint
	Name   string
	Email  string
	Role   models.UserRole
}

func (p *Principal) Actor() audit.Actor {
	return audit.Actor{UserID: p.UserID, UserName: p.Name}
}

func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken: sadece HS256, bizim issuer'ımız ve süresi dolmamış token kabul edilir
func ParseToken(secret, raw string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, errBadSubject
	}
	return &Principal{
		UserID: uint(id),
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	AccessTokenTTL = time.Hour * 24
	JWTIssuer      = "photo-albumapp"
)

// ErrInvalidToken covers a bad signature, a malformed payload and an expired
// token alike; callers get no further detail.
var ErrInvalidToken = errors.New("auth: invalid token")

func NewAccessToken(secret string, userID int64) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Issuer:    JWTIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	return tok.SignedString([]byte(secret))
}

func VerifyAccessToken(secret, token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	tkn, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) { return []byte(secret), nil })
	if err != nil || !tkn.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return userID, nil
}

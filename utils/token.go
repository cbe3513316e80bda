package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// JwtValidationEnabled is false when API_SECRET is unset; tokens are then forwarded unchecked
// and the upstream backend is the only judge.
func JwtValidationEnabled() bool {
	return strings.TrimSpace(os.Getenv("API_SECRET")) != ""
}

func JwtValidate(token string) (*jwt.Token, error) {
	secret := []byte(os.Getenv("API_SECRET"))
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
}

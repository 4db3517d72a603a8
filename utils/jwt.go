package utils

import (
	"errors"
	"fmt"
	"time"

	"localcity/config"
	"localcity/models"

	"github.com/golang-jwt/jwt"
)

func secretKey() ([]byte, error) {
	if config.AppConfig.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}
	return []byte(config.AppConfig.JWTSecret), nil
}

// GenerateToken creates a signed HS256 token for an admin. The token expires
// after the given duration.
func GenerateToken(claims models.AdminClaims, duration time.Duration) (string, error) {
	key, err := secretKey()
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   claims.UserID,
		"email": claims.Email,
		"role":  string(claims.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(duration).Unix(),
	})
	return token.SignedString(key)
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	key, err := secretKey()
	if err != nil {
		return nil, err
	}
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
}

// ParseAdminToken validates tokenString and extracts its admin claims.
func ParseAdminToken(tokenString string) (models.AdminClaims, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return models.AdminClaims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.AdminClaims{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.AdminClaims{}, fmt.Errorf("%w: token does not contain a valid 'sub' claim", ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return models.AdminClaims{UserID: sub, Email: email, Role: models.Role(role)}, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL 签发令牌的默认有效期
const DefaultTokenTTL = 24 * time.Hour

// AuthToken 基于 HS256 的 API 访问令牌
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
}

// NewAuthToken 创建令牌工具，密钥不能为空
func NewAuthToken(secretKey string, ttl time.Duration) (*AuthToken, error) {
	if secretKey == "" {
		return nil, errors.New("secret key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}, nil
}

// GenerateToken 为客户端签发令牌
func (at *AuthToken) GenerateToken(clientID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken 校验令牌并返回客户端ID
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if at == nil || at.secretKey == nil {
		return "", errors.New("secret key is not initialized")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return at.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject in claims")
	}
	return claims.Subject, nil
}

package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrInvalidAccount = errors.New("account id must be positive")
	ErrEmptySecret    = errors.New("jwt secret is empty")
)

const (
	// Issuer 只接受本服务签发的 token
	Issuer = "yardconnect"
	// DefaultExpireHours 与 jwt.expire_hours 默认值一致
	DefaultExpireHours = 168
)

// Claims 登录态，只携带账号 ID
type Claims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

// GenerateToken 签发 HS256 token，expireHours <= 0 时使用一周
func GenerateToken(accountID int64, secret string, expireHours int) (string, error) {
	if accountID <= 0 {
		return "", ErrInvalidAccount
	}
	if secret == "" {
		return "", ErrEmptySecret
	}
	if expireHours <= 0 {
		expireHours = DefaultExpireHours
	}

	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 校验签名、签发方、过期时间和账号 ID
func ParseToken(tokenString, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.AccountID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

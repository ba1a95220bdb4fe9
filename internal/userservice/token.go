package userservice

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "blogsphere"

var (
	ErrInvalidToken = errors.New("invalid or malformed token")
	ErrTokenExpired = errors.New("token has expired")
)

type tokenUse string

const (
	tokenUseAccess  tokenUse = "access"
	tokenUseRefresh tokenUse = "refresh"
)

// Claims are the JWT claims for both token kinds. Use keeps a refresh token from being accepted as an access token
// when both are signed with the same secret.
type Claims struct {
	Use string `json:"use"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access and refresh tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager falls back to the access secret when refreshSecret is empty and to the package defaults for
// non-positive TTLs.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	if accessTTL <= 0 {
		accessTTL = AccessTokenTime
	}
	if refreshTTL <= 0 {
		refreshTTL = RefreshTokenTime
	}

	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (tm *TokenManager) NewAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return tm.issue(userID, tokenUseAccess, tm.accessSecret, tm.accessTTL)
}

func (tm *TokenManager) NewRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return tm.issue(userID, tokenUseRefresh, tm.refreshSecret, tm.refreshTTL)
}

func (tm *TokenManager) ParseAccessToken(token string) (uuid.UUID, error) {
	return tm.parse(token, tokenUseAccess, tm.accessSecret)
}

func (tm *TokenManager) ParseRefreshToken(token string) (uuid.UUID, error) {
	return tm.parse(token, tokenUseRefresh, tm.refreshSecret)
}

func (tm *TokenManager) issue(userID uuid.UUID, use tokenUse, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(ttl)

	claims := Claims{
		Use: string(use),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign %s token: %w", use, err)
	}

	return signed, expiry, nil
}

func (tm *TokenManager) parse(token string, use tokenUse, secret []byte) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrInvalidToken
	}

	if claims.Use != string(use) {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return id, nil
}

// hashToken returns the digest stored for a refresh token.
func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

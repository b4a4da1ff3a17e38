package jwt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the session token issued after social sign-in.
// The subject is the author's numeric fid.
type Claims struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	PfpURL      string `json:"pfp_url,omitempty"`
	Address     string `json:"address,omitempty"`
	Type        string `json:"type"` // "access"
	jwt.RegisteredClaims
}

// Identity is the subset of a profile carried in a token.
type Identity struct {
	FID         int64
	Username    string
	DisplayName string
	PfpURL      string
	Address     string
}

// Manager handles JWT operations
type Manager struct {
	secret string
	expiry time.Duration
}

// NewManager creates new JWT manager
func NewManager(secret string, expiry time.Duration) *Manager {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Manager{secret: secret, expiry: expiry}
}

// GenerateAccessToken signs an access token for the identity.
func (m *Manager) GenerateAccessToken(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		FID:         id.FID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		PfpURL:      id.PfpURL,
		Address:     id.Address,
		Type:        "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.FID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// ValidateToken validates and parses token
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// ValidateAccessToken validates access token specifically
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "access" {
		return nil, fmt.Errorf("invalid token type: expected access, got %s", claims.Type)
	}
	if claims.FID < 1 {
		return nil, fmt.Errorf("invalid fid in token")
	}

	return claims, nil
}

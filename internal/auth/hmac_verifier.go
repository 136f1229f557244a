package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "propertyhub-api"

// SellerClaims are the claims of HMAC-signed seller session tokens
type SellerClaims struct {
	SellerID string `json:"_id"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier validates seller session tokens signed with a shared secret
type HMACVerifier struct {
	secret []byte
}

var _ TokenVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SellerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SellerClaims)
	if !ok || !token.Valid || claims.SellerID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return &Identity{SellerID: claims.SellerID, IsAdmin: claims.IsAdmin}, nil
}

// IssueToken signs a session token for sellerID, valid for ttl
func (v *HMACVerifier) IssueToken(sellerID string, isAdmin bool, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := SellerClaims{
		SellerID: sellerID,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   sellerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

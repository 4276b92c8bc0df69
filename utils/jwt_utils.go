package utils

import (
	"errors"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	TenantID string   `json:"tenant_id"`
	OrgID    string   `json:"organization_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserContext converts verified claims into the request identity.
func (c *Claims) UserContext() *models.UserContext {
	return &models.UserContext{
		UserID:   c.UserID,
		Name:     c.Name,
		Email:    c.Email,
		TenantID: c.TenantID,
		OrgID:    c.OrgID,
		Roles:    append([]string(nil), c.Roles...),
	}
}

func GenerateJWTTokenWithSecret(user *models.UserContext, jwtSecret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.UserID,
		Email:    user.Email,
		Name:     user.Name,
		TenantID: user.TenantID,
		OrgID:    user.OrgID,
		Roles:    user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyJWTTokenWithSecret checks signature, expiry and, when issuer is
// non-empty, the iss claim.
func VerifyJWTTokenWithSecret(tokenString, jwtSecret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return nil, errors.New("token is missing user or tenant")
	}
	return claims, nil
}

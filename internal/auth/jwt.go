package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/storage"
)

// Claims are the HS256 token claims. Subject carries the user id.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and resolves tokens. Resolving a valid token refreshes
// the caller's User record.
type Authenticator struct {
	secret []byte
	users  storage.UserStore
	now    func() time.Time
}

func NewAuthenticator(secret string, users storage.UserStore, now func() time.Time) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{secret: []byte(secret), users: users, now: now}, nil
}

// Issue signs a token for userID valid for ttl.
func (a *Authenticator) Issue(userID, username string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := a.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve maps an Authorization header to an Identity. An empty header is
// anonymous; anything else must be a valid bearer token or the result wraps
// domain.ErrUnauthenticated.
func (a *Authenticator) Resolve(ctx context.Context, header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Anonymous(), nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return Identity{}, fmt.Errorf("%w: expected bearer token", domain.ErrUnauthenticated)
	}

	claims, err := a.parse(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	id := Identity{UserID: claims.Subject, Username: claims.Username}

	if a.users != nil {
		if _, err := a.users.UpsertUser(ctx, domain.User{ID: id.UserID, Username: id.Username, LastSeenAt: a.now().UTC()}); err != nil {
			return Identity{}, fmt.Errorf("record user: %w", err)
		}
	}
	return id, nil
}

func (a *Authenticator) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

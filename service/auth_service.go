package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAdminDisabled      = errors.New("admin login is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth issues admin bearer tokens. A token is an HS256 JWT whose jti must also be live
// in the session store, so logout revokes it before it expires.
type AdminAuth struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	store    SessionStore
	now      func() time.Time
	log      *zap.Logger
}

func NewAdminAuth(username, password, secret string, ttl time.Duration, store SessionStore, log *zap.Logger) *AdminAuth {
	if secret == "" {
		// tokens then only survive until restart
		secret = uuid.NewString() + uuid.NewString()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AdminAuth{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		store:    store,
		now:      time.Now,
		log:      log,
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Login accepts the password alone or together with the configured username.
func (a *AdminAuth) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if a.password == "" {
		return "", time.Time{}, ErrAdminDisabled
	}
	if !equal(password, a.password) || (username != "" && !equal(username, a.username)) {
		a.log.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	id := uuid.NewString()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	if err := a.store.Put(ctx, id, a.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}
	a.log.Info("admin logged in", zap.String("session", id))
	return token, expires, nil
}

func (a *AdminAuth) parse(token string) (*AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Validate checks the token's signature, expiry, and that its session is still live.
func (a *AdminAuth) Validate(ctx context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return err
	}
	ok, err := a.store.Exists(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return ErrInvalidSession
	}
	return nil
}

// ValidateOrPassword is the looser check used by the airdrop admin routes, which also
// accept the raw admin password as bearer.
func (a *AdminAuth) ValidateOrPassword(ctx context.Context, token string) error {
	if a.password != "" && equal(token, a.password) {
		return nil
	}
	return a.Validate(ctx, token)
}

func (a *AdminAuth) Logout(ctx context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return nil
	}
	return a.store.Delete(ctx, claims.ID)
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sessq-service/internal/domain"
)

// Credentials resolves host accounts for password login.
type Credentials interface {
	HostByUsername(ctx context.Context, username string) (domain.Host, error)
}

// TokenStore persists opaque refresh tokens. ConsumeRefresh must invalidate
// the token it returns so each refresh token is single use.
type TokenStore interface {
	SaveRefresh(ctx context.Context, token, hostID string, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, token string) (string, error)
}

// Tokens is the pair returned by login and refresh.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Service struct {
	credentials Credentials
	tokens      TokenStore
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewService(credentials Credentials, tokens TokenStore, secret string, accessTTL, refreshTTL time.Duration) *Service {
	// Zero means unset; a negative TTL is honored so callers can mint
	// already-expired tokens.
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Login checks the host's password and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	host, err := s.credentials.HostByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrHostNotFound) {
			return Tokens{}, domain.ErrInvalidCredentials
		}
		return Tokens{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(host.PasswordHash), []byte(password)); err != nil {
		return Tokens{}, domain.ErrInvalidCredentials
	}
	return s.issue(ctx, host)
}

// Refresh trades a refresh token for a fresh pair. The old token is
// consumed even when issuing fails, forcing a new login in that case.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	hostID, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		return Tokens{}, err
	}
	return s.issue(ctx, domain.Host{ID: hostID})
}

func (s *Service) issue(ctx context.Context, host domain.Host) (Tokens, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"host_id": host.ID,
		"exp":     now.Add(s.accessTTL).Unix(),
		"iat":     now.Unix(),
	}
	if host.Username != "" {
		claims["username"] = host.Username
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := randomToken(32)
	if err != nil {
		return Tokens{}, err
	}
	if err := s.tokens.SaveRefresh(ctx, refresh, host.ID, s.refreshTTL); err != nil {
		return Tokens{}, fmt.Errorf("save refresh token: %w", err)
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

// VerifyAccess parses and validates an access token, returning the host ID.
func (s *Service) VerifyAccess(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidCredentials
	}
	hostID, ok := claims["host_id"].(string)
	if !ok || hostID == "" {
		return "", domain.ErrInvalidCredentials
	}
	return hostID, nil
}

func randomToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

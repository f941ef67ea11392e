package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridreplay/internal/config"
	"gridreplay/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "gridreplay"

var (
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmptyUsername      = errors.New("username is empty")
)

// AuthService registers operators and issues HMAC-signed bearer tokens.
type AuthService struct {
	operators  repository.OperatorRepo
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.OperatorRepo, cfg config.AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		operators:  repo,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		now:        time.Now,
	}
}

// SignUp stores a new operator with a bcrypt hash of the password.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrEmptyUsername
	}
	if strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("%w: password is empty", ErrInvalidPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt refuses passwords longer than 72 bytes
		return 0, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return s.operators.Create(ctx, username, string(hash))
}

// OperatorClaims are carried by every issued token.
type OperatorClaims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// GenerateToken checks the credentials and returns a signed token. Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	op, err := s.operators.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrOperatorNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(op.ID)
}

// ParseToken verifies signature, issuer and expiry and returns the operator id.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *AuthService) issueToken(operatorID int) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}

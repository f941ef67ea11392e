package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"gridreplay/internal/config"
	"gridreplay/internal/models"
	"gridreplay/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testAuthConfig = config.AuthConfig{SigningKey: "test-signing-key", TokenTTL: time.Hour}

// fakeOperatorRepo keeps operators in a map keyed by username.
type fakeOperatorRepo struct {
	byName    map[string]models.Operator
	createErr error
	getErr    error
	creates   int
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{byName: map[string]models.Operator{}}
}

func (f *fakeOperatorRepo) Create(_ context.Context, username, hash string) (int, error) {
	f.creates++
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, ok := f.byName[username]; ok {
		return 0, repository.ErrUserExists
	}
	op := models.Operator{ID: len(f.byName) + 1, Username: username, PasswordHash: hash}
	f.byName[username] = op
	return op.ID, nil
}

func (f *fakeOperatorRepo) GetByUsername(_ context.Context, username string) (models.Operator, error) {
	if f.getErr != nil {
		return models.Operator{}, f.getErr
	}
	op, ok := f.byName[username]
	if !ok {
		return models.Operator{}, repository.ErrOperatorNotFound
	}
	return op, nil
}

func signedWith(t *testing.T, method jwt.SigningMethod, key any, claims OperatorClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, &claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(now time.Time, id int) OperatorClaims {
	return OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		OperatorID: id,
	}
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOperatorRepo()
	svc := NewAuthService(repo, testAuthConfig)

	id, err := svc.SignUp(ctx, "  night-shift ", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	stored := repo.byName["night-shift"]
	assert.NotEqual(t, "s3cr3t", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cr3t")))

	token, err := svc.GenerateToken(ctx, "night-shift", "s3cr3t")
	require.NoError(t, err)
	got, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.SignUp(ctx, "night-shift", "other")
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestAuthService_SignUpRejectsInput(t *testing.T) {
	cases := []struct {
		name, user, pass string
		want             error
	}{
		{"blank username", " ", "pw", ErrEmptyUsername},
		{"blank password", "ops", "   ", ErrInvalidPassword},
		{"password over bcrypt limit", "ops", string(make([]byte, 73)), ErrInvalidPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeOperatorRepo()
			_, err := NewAuthService(repo, testAuthConfig).SignUp(context.Background(), tc.user, tc.pass)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, repo.creates)
		})
	}
}

func TestAuthService_SignUpStoreError(t *testing.T) {
	repo := newFakeOperatorRepo()
	repo.createErr = errors.New("database is locked")

	_, err := NewAuthService(repo, testAuthConfig).SignUp(context.Background(), "ops", "pw")
	assert.EqualError(t, err, "database is locked")
}

func TestAuthService_GenerateTokenFailures(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOperatorRepo()
	svc := NewAuthService(repo, testAuthConfig)
	_, err := svc.SignUp(ctx, "ops", "correct")
	require.NoError(t, err)

	_, err = svc.GenerateToken(ctx, "ops", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.GenerateToken(ctx, "ghost", "correct")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user looks like a bad password")

	repo.getErr = errors.New("disk I/O error")
	_, err = svc.GenerateToken(ctx, "ops", "correct")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAuthService(newFakeOperatorRepo(), testAuthConfig)
	svc.now = func() time.Time { return now }
	key := []byte(testAuthConfig.SigningKey)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := validClaims(now.Add(-3*time.Hour), 4)
	foreign := validClaims(now, 4)
	foreign.Issuer = "someone-else"
	noExpiry := validClaims(now, 4)
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"garbage":         "not-a-jwt",
		"other key":       signedWith(t, jwt.SigningMethodHS256, []byte("other-key"), validClaims(now, 4)),
		"expired":         signedWith(t, jwt.SigningMethodHS256, key, expired),
		"foreign issuer":  signedWith(t, jwt.SigningMethodHS256, key, foreign),
		"no expiry":       signedWith(t, jwt.SigningMethodHS256, key, noExpiry),
		"zero operator":   signedWith(t, jwt.SigningMethodHS256, key, validClaims(now, 0)),
		"hs512 algorithm": signedWith(t, jwt.SigningMethodHS512, key, validClaims(now, 4)),
		"rsa algorithm":   signedWith(t, jwt.SigningMethodRS256, rsaKey, validClaims(now, 4)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthService_TokenLifetime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAuthService(newFakeOperatorRepo(), config.AuthConfig{SigningKey: "k", TokenTTL: 10 * time.Minute})
	svc.now = func() time.Time { return now }

	token, err := svc.issueToken(8)
	require.NoError(t, err)

	now = now.Add(9 * time.Minute)
	id, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 8, id)

	now = now.Add(2 * time.Minute)
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(newFakeOperatorRepo(), config.AuthConfig{SigningKey: "k"})
	assert.Equal(t, time.Hour, svc.tokenTTL)
}

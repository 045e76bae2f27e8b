package jwt

import (
	"testing"
	"time"

	"auth_backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return New("test_secret", time.Hour, 24*time.Hour, 30*time.Minute)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.NewAccessToken("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, m.Validate(token))

	isAccess, err := m.IsAccessToken(token)
	require.NoError(t, err)
	assert.True(t, isAccess)

	id, err := m.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestRefreshTokenIsNotAccess(t *testing.T) {
	m := newTestManager()

	token, err := m.NewRefreshToken("alice")
	require.NoError(t, err)

	assert.True(t, m.Validate(token))

	isAccess, err := m.IsAccessToken(token)
	require.NoError(t, err)
	assert.False(t, isAccess)
}

func TestUnparsableToken(t *testing.T) {
	m := newTestManager()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, m.Validate(tt.token))

			_, err := m.IsAccessToken(tt.token)
			assert.ErrorIs(t, err, apperr.ErrUnsupportedJWT)

			_, err = m.UserID(tt.token)
			assert.Error(t, err)

			_, err = m.RemainingDuration(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTamperedSignature(t *testing.T) {
	m := newTestManager()
	other := New("other_secret", time.Hour, 24*time.Hour, 30*time.Minute)

	token, err := other.NewAccessToken("alice")
	require.NoError(t, err)

	assert.False(t, m.Validate(token))
}

func TestExpiredToken(t *testing.T) {
	expired := New("test_secret", -time.Minute, -time.Minute, -time.Minute)

	token, err := expired.NewAccessToken("alice")
	require.NoError(t, err)

	assert.False(t, expired.Validate(token))

	_, err = expired.RemainingDuration(token)
	assert.Error(t, err)
}

func TestRemainingDuration(t *testing.T) {
	m := newTestManager()

	token, err := m.NewRefreshToken("alice")
	require.NoError(t, err)

	remaining, err := m.RemainingDuration(token)
	require.NoError(t, err)

	assert.InDelta(t, (24 * time.Hour).Seconds(), remaining.Seconds(), 5)
}

func TestEmailVerificationToken(t *testing.T) {
	m := newTestManager()

	token, err := m.NewEmailVerificationToken("a@b.com", "signup")
	require.NoError(t, err)

	assert.True(t, m.ValidateEmailVerificationToken(token, "signup"))
	assert.False(t, m.ValidateEmailVerificationToken(token, "reset"),
		"type claim must match the expected purpose exactly")

	email, err := m.EmailFromVerificationToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}

func TestOtherTokensAreNotVerificationTokens(t *testing.T) {
	m := newTestManager()

	access, err := m.NewAccessToken("a@b.com")
	require.NoError(t, err)

	assert.False(t, m.ValidateEmailVerificationToken(access, "signup"))
}

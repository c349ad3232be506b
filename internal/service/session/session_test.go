package session

import (
	"OrderFlow/entity"
	"OrderFlow/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	conf := &config.Config{}
	conf.Session.Secret = secret
	s, err := NewSessionService(conf)
	require.NoError(t, err)
	return s
}

func TestService_IssueAndParse(t *testing.T) {
	s := newTestService(t, "top-secret")

	token, issued, err := s.Issue(entity.AuthResult{UserID: "u-1", PhoneNumber: "13800138000", IsNewUser: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultTokenTTL), issued.ExpiresAt, time.Minute)

	got, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "13800138000", got.Phone)
	assert.True(t, got.IsNewUser)
}

func TestService_RejectsForeignAndExpiredTokens(t *testing.T) {
	s := newTestService(t, "top-secret")
	other := newTestService(t, "another-secret")

	token, _, err := other.Issue(entity.AuthResult{UserID: "u-1", PhoneNumber: "13800138000"})
	require.NoError(t, err)
	_, err = s.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	token, _, err = s.Issue(entity.AuthResult{UserID: "u-1", PhoneNumber: "13800138000"})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = s.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSessionService_RequiresSecret(t *testing.T) {
	_, err := NewSessionService(&config.Config{})
	require.Error(t, err)
}

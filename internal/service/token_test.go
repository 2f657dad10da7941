package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueVerify(t *testing.T) {
	s := NewTokenService("secret", 0)

	token, err := s.Issue("user-42")
	require.NoError(t, err)

	userID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenService_ExpiresAfterSevenDays(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewTokenService("secret", 0)
	s.now = func() time.Time { return issued }

	token, err := s.Issue("user-42")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(7*24*time.Hour - time.Minute) }
	_, err = s.Verify(token)
	assert.NoError(t, err)

	s.now = func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) }
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Rejects(t *testing.T) {
	s := NewTokenService("secret", time.Hour)
	good, err := s.Issue("user-42")
	require.NoError(t, err)

	otherKey, err := NewTokenService("other-secret", time.Hour).Issue("user-42")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "user-42"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "tampered", token: good + "x"},
		{name: "signed with another secret", token: otherKey},
		{name: "alg none", token: none},
		{name: "no expiry", token: noExpiry},
		{name: "no user id", token: noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

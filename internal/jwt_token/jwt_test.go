package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/pkg/domainerrors"
)

var jwtService = NewService("test-signing-key", "test-issuer", time.Hour)
var userID = uuid.New()

func Test_Generate(t *testing.T) {
	token, err := jwtService.Generate(userID, "jake")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "jake", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := jwtService.Validate("invalid-token-string")
	require.Error(t, err)
	assert.True(t, domainerrors.IsKind(err, domainerrors.KindAuthentication))
	assert.True(t, domainerrors.HasCode(err, "TOKEN_INVALID"))
}

func Test_Validate_ExpiredToken(t *testing.T) {
	expired := NewService("test-signing-key", "test-issuer", -time.Hour)
	token, err := expired.Generate(userID, "jake")
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, "TOKEN_EXPIRED"))
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("other-signing-key", "test-issuer", time.Hour)
	token, err := other.Generate(userID, "jake")
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, "TOKEN_INVALID"))
}

func Test_ExtractUserID(t *testing.T) {
	token, err := jwtService.Generate(userID, "jake")
	require.NoError(t, err)

	got, err := jwtService.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

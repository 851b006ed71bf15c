package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rivulet/internal/auth"
)

func TestStaticAuthorizerAcceptsConfiguredToken(t *testing.T) {
	a := auth.NewStaticAuthorizer("secret", "me")

	verdict, err := a.Verify(context.Background(), "secret")
	require.NoError(t, err)
	require.Equal(t, "me", verdict.UserID)
	for _, scope := range []string{auth.ScopeRead, auth.ScopeChannels, auth.ScopeFollow, auth.ScopeMute, auth.ScopeBlock} {
		require.True(t, verdict.HasScope(scope))
	}
}

func TestStaticAuthorizerRejectsBadToken(t *testing.T) {
	a := auth.NewStaticAuthorizer("secret", "me")

	_, err := a.Verify(context.Background(), "wrong")
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = a.Verify(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestStaticAuthorizerWithoutTokenRejectsEverything(t *testing.T) {
	a := auth.NewStaticAuthorizer("", "me")
	_, err := a.Verify(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestVerdictHasScope(t *testing.T) {
	v := auth.Verdict{Scopes: []string{auth.ScopeRead}}
	require.True(t, v.HasScope(auth.ScopeRead))
	require.False(t, v.HasScope(auth.ScopeBlock))
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign("user-42", time.Hour)
	require.NoError(t, err)

	userID, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", userID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier("test-secret")

	_, err := v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewVerifier("different-secret")
	token, err := other.Sign("user-42", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Sign("user-42", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-7")

	userID, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "user-7", userID)

	_, ok = UserIDFromContext(context.Background())
	require.False(t, ok)
}

func TestSessionsNotifiesListeners(t *testing.T) {
	sessions := NewSessions()

	type event struct {
		userID   string
		signedIn bool
	}
	var events []event
	sessions.OnChange(func(userID string, signedIn bool) {
		events = append(events, event{userID, signedIn})
	})

	sessions.SignedIn("user-1")
	sessions.SignedOut("user-1")

	require.Equal(t, []event{{"user-1", true}, {"user-1", false}}, events)
}

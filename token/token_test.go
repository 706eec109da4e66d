package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AccessRoundTrip(t *testing.T) {
	svc := New("test-secret", time.Hour, 24*time.Hour)

	tok, err := svc.IssueAccess("a@x.com")
	require.NoError(t, err)

	sub, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)
}

func TestValidate_RefreshRoundTrip(t *testing.T) {
	svc := New("test-secret", time.Hour, 24*time.Hour)

	tok, err := svc.IssueRefresh("b@x.com")
	require.NoError(t, err)

	sub, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", sub)
}

func TestValidate_Expired(t *testing.T) {
	svc := New("test-secret", -time.Minute, 24*time.Hour)

	tok, err := svc.IssueAccess("a@x.com")
	require.NoError(t, err)

	_, err = svc.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	svc := New("test-secret", time.Hour, 24*time.Hour)

	_, err := svc.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	issuer := New("secret-one", time.Hour, 24*time.Hour)
	verifier := New("secret-two", time.Hour, 24*time.Hour)

	tok, err := issuer.IssueAccess("a@x.com")
	require.NoError(t, err)

	_, err = verifier.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshAcceptedWhereAccessIs(t *testing.T) {
	// Refresh and access tokens are structurally identical; a refresh
	// token validates like any other. Documents the known gap.
	svc := New("test-secret", time.Hour, 24*time.Hour)

	refresh, err := svc.IssueRefresh("a@x.com")
	require.NoError(t, err)

	sub, err := svc.Validate(refresh)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)
}

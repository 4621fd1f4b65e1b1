package credential

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseToken(t *testing.T) {
	exp := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	token := signed(t, Claims{
		AccountID: "acct-1",
		Accounts:  []Account{{ID: "acct-1", Name: "School A"}, {ID: "acct-2", Name: "School B"}},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-7",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, "user-7", claims.Subject)
	assert.Len(t, claims.Choices(), 2)

	assert.NoError(t, claims.CheckExpiry(exp.Add(-time.Minute)))
	assert.ErrorIs(t, claims.CheckExpiry(exp.Add(time.Minute)), ErrTokenExpired)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestChoicesFallsBackToAccountID(t *testing.T) {
	assert.Equal(t, []Account{{ID: "acct-9", Name: "acct-9"}}, Claims{AccountID: "acct-9"}.Choices())
	assert.Empty(t, Claims{}.Choices())
}

func TestVaultSession(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	_, err := v.Session("default")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	token := signed(t, Claims{AccountID: "acct-1"})
	require.NoError(t, v.SetToken("default", token))

	s, err := v.Session("default")
	require.NoError(t, err)
	assert.Equal(t, Session{Profile: "default", Token: token, AccountID: "acct-1"}, s)

	require.NoError(t, v.SetAccount("default", "acct-2"))
	s, err = v.Session("default")
	require.NoError(t, err)
	assert.Equal(t, "acct-2", s.AccountID)

	_, err = v.Session("other")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, v.Forget("default"))
	require.NoError(t, v.Forget("default"))
	_, err = v.Token("default")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

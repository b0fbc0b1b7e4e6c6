package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seepage/internal/model"
)

var testUser = model.EditorDTO{ID: "e1", Email: "stassi@example.com", FirstName: "Stassi", LastName: "Schroeder"}

func newIssuer(t *testing.T, now time.Time) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	ti.now = func() time.Time { return now }
	return ti
}

func TestNewTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer("s", 0)
	assert.Error(t, err)
}

func TestTokenIssuer_IssueVerify(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	ti := newIssuer(t, now)

	tok, err := ti.Issue(testUser)
	require.NoError(t, err)

	claims, err := ti.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.User)
	assert.Equal(t, testUser.Email, claims.Subject)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_VerifyRejects(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	ti := newIssuer(t, now)
	tok, err := ti.Issue(testUser)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newIssuer(t, now.Add(2*time.Hour))
		_, err := later.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenIssuer("other", time.Hour)
		require.NoError(t, err)
		_, err = other.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{User: testUser})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ti.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ti.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenIssuer_Refresh(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	ti := newIssuer(t, now)
	tok, err := ti.Issue(testUser)
	require.NoError(t, err)
	old, err := ti.Verify(tok)
	require.NoError(t, err)

	ti.now = func() time.Time { return now.Add(10 * time.Minute) }
	refreshed, err := ti.Refresh(tok)
	require.NoError(t, err)

	claims, err := ti.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.User)
	assert.Equal(t, old.Subject, claims.Subject)
	assert.GreaterOrEqual(t, claims.ExpiresAt.Unix(), old.ExpiresAt.Unix())

	_, err = ti.Refresh("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse battery", hash)
	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong password!"))
	assert.False(t, CheckPassword("not-a-hash", "x"))
}

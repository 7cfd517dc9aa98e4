package auth

import (
	"testing"
	"time"

	"ddd-users/config"
	"ddd-users/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(t *testing.T) *user.User {
	t.Helper()
	e, _ := user.NewEmail("a@b.co")
	n, _ := user.NewUsername("alice")
	p, _ := user.NewPassword("secret123")
	u, err := user.New(user.Props{Email: e, Username: n, Password: p}, nil)
	require.NoError(t, err)
	return u
}

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.AuthConfig{
		Secret:          "test-secret",
		Issuer:          "ddd-users",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func TestIssueAndParse(t *testing.T) {
	issuer := testIssuer()
	u := testUser(t)

	access, refresh, err := issuer.Issue(u)
	require.NoError(t, err)
	assert.NotEqual(t, string(access), string(refresh))

	claims, err := issuer.Parse(string(access), TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID().String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = issuer.Parse(string(refresh), TokenTypeRefresh)
	require.NoError(t, err)

	_, err = issuer.Parse(string(refresh), TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token is not an access token")
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := testIssuer()
	access, _, err := issuer.Issue(testUser(t))
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(string(access), TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer(config.AuthConfig{Secret: "other", Issuer: "ddd-users", AccessTokenTTL: time.Minute})
	_, err = other.Parse(string(access), TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = testIssuer().Parse("not-a-token", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

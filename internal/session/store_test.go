package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/auto-marketplace/internal/session"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoadClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")

	s, err := session.NewStore(path)
	require.NoError(t, err)
	assert.Empty(t, s.Token())

	require.NoError(t, s.Save(session.Credentials{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User:         &domain.User{ID: 7, Username: "ana"},
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := session.NewStore(path)
	require.NoError(t, err)
	creds := reloaded.Credentials()
	assert.Equal(t, "access-1", creds.Token)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
	require.NotNil(t, creds.User)
	assert.Equal(t, "ana", creds.User.Username)

	require.NoError(t, reloaded.Clear())
	assert.Empty(t, reloaded.Token())
	assert.True(t, reloaded.Credentials().Empty())
	assert.Nil(t, reloaded.Credentials().User)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, reloaded.Clear())
}

func TestStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unterminated"), 0o600))

	_, err := session.NewStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing credentials")
}

func TestCredentials_ExpiresAt(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		creds  *session.Credentials
		wantOK bool
	}{
		{name: "jwt with exp", creds: &session.Credentials{Token: signedToken(t, exp)}, wantOK: true},
		{name: "opaque token", creds: &session.Credentials{Token: "not-a-jwt"}},
		{name: "no token", creds: &session.Credentials{}},
		{name: "nil credentials", creds: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.creds.ExpiresAt()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, exp.Equal(got))
			}
		})
	}
}

func TestCredentials_Empty(t *testing.T) {
	t.Parallel()

	s, err := session.NewStore(filepath.Join(t.TempDir(), "credentials.yaml"))
	require.NoError(t, err)
	assert.True(t, s.Credentials().Empty())

	require.NoError(t, s.Save(session.Credentials{Token: "access-1"}))
	assert.False(t, s.Credentials().Empty())
}

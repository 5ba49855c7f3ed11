package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, contents string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".cloudflare")
	require.NoError(t, os.WriteFile(path, []byte(contents), perm))
	// WriteFile is subject to umask
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestVerifyPermissions(t *testing.T) {
	testCases := []struct {
		perm    os.FileMode
		wantErr bool
	}{
		{0600, false},
		{0400, false},
		{0644, true},
		{0640, true},
	}
	for _, tc := range testCases {
		t.Run(tc.perm.String(), func(t *testing.T) {
			err := verifyPermissions(writeKeyFile(t, "key\n", tc.perm))
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var pe permissionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.perm, os.FileMode(pe))
		})
	}
}

func TestReadKey(t *testing.T) {
	path := writeKeyFile(t, "  secret-key \nsecond line\n", 0600)
	key, err := readKey(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", key)
}

func TestKeyFromFile(t *testing.T) {
	path := writeKeyFile(t, "secret-key\n", 0600)
	key, err := keyFromFile(path, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", key)

	_, err = keyFromFile(writeKeyFile(t, "secret-key\n", 0666), "user@example.com")
	assert.Error(t, err)
}

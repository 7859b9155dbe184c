package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret!", hash)

	require.NoError(t, CheckPassword(hash, "s3cret!"))
	require.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, CheckPassword("not-a-hash", "s3cret!"), ErrInvalidCredentials)
}

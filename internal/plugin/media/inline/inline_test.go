package inline

import (
	"context"
	"strings"
	"testing"

	registrymedia "github.com/chirino/social-service/internal/registry/media"
	"github.com/stretchr/testify/require"
)

func TestEncode_DataURL(t *testing.T) {
	ref, err := New(16).Encode(context.Background(), strings.NewReader("hello"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,aGVsbG8=", ref)
}

func TestEncode_TooLarge(t *testing.T) {
	_, err := New(4).Encode(context.Background(), strings.NewReader("hello"), "image/png")
	var tooLarge *registrymedia.TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	require.EqualValues(t, 4, tooLarge.MaxSize)
}

func TestEncode_DefaultContentType(t *testing.T) {
	ref, err := New(16).Encode(context.Background(), strings.NewReader("x"), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "data:application/octet-stream;base64,"))
}

package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestEncode_UploadsAndReturnsPublicURL(t *testing.T) {
	putter := &fakePutter{}
	enc := New(putter, Options{Bucket: "media", Prefix: "/posts/", PublicBaseURL: "https://cdn.example.com/", MaxSize: 1024})

	ref, err := enc.Encode(context.Background(), strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)

	require.Equal(t, "media", *putter.input.Bucket)
	require.True(t, strings.HasPrefix(*putter.input.Key, "posts/"))
	require.True(t, strings.HasSuffix(*putter.input.Key, ".png"))
	require.Equal(t, "image/png", *putter.input.ContentType)
	require.EqualValues(t, len("png-bytes"), *putter.input.ContentLength)
	require.Equal(t, "png-bytes", putter.body)
	require.Equal(t, "https://cdn.example.com/"+*putter.input.Key, ref)
}

func TestEncode_TooLargeSkipsUpload(t *testing.T) {
	putter := &fakePutter{}
	enc := New(putter, Options{Bucket: "media", PublicBaseURL: "https://cdn.example.com", MaxSize: 3})

	_, err := enc.Encode(context.Background(), strings.NewReader("toolarge"), "image/png")
	var tooLarge *registrymedia.TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	require.Nil(t, putter.input)
}

func TestEncode_PutFailure(t *testing.T) {
	putter := &fakePutter{err: errors.New("boom")}
	enc := New(putter, Options{Bucket: "media", PublicBaseURL: "https://cdn.example.com"})

	_, err := enc.Encode(context.Background(), strings.NewReader("x"), "image/jpeg")
	require.ErrorContains(t, err, "put object")
}

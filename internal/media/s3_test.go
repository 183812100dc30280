package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

// smallest valid PNG header is enough for sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadImageStoresPNG(t *testing.T) {
	put := &fakePutter{}
	store := NewStore(put, config.S3Config{Bucket: "shop", Region: "eu-west-1", PublicBaseURL: "https://cdn.test/"})

	url, err := store.UploadImage(context.Background(), bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "https://cdn.test/products/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	assert.Equal(t, "shop", *put.in.Bucket)
	assert.Equal(t, "image/png", *put.in.ContentType)
	assert.Equal(t, pngBytes, put.body)
}

func TestUploadImageDefaultURL(t *testing.T) {
	store := NewStore(&fakePutter{}, config.S3Config{Bucket: "shop", Region: "eu-west-1"})

	url, err := store.UploadImage(context.Background(), bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://shop.s3.eu-west-1.amazonaws.com/products/"), url)
}

func TestUploadImageRejects(t *testing.T) {
	store := NewStore(&fakePutter{}, config.S3Config{Bucket: "shop"})

	_, err := store.UploadImage(context.Background(), strings.NewReader("just some text"))
	assert.True(t, errors.Is(err, ErrUnsupportedType), "got %v", err)

	_, err = store.UploadImage(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)

	big := append(append([]byte{}, pngBytes...), make([]byte, MaxImageBytes)...)
	_, err = store.UploadImage(context.Background(), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadImagePropagatesStorageError(t *testing.T) {
	store := NewStore(&fakePutter{err: errors.New("denied")}, config.S3Config{Bucket: "shop"})

	_, err := store.UploadImage(context.Background(), bytes.NewReader(pngBytes))
	assert.Error(t, err)
}

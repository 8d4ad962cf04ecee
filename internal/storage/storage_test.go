package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foodgram-api/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestDecodeImageDataURI(t *testing.T) {
	img, err := DecodeImage("data:image/png;base64," + pixelPNG)
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)
	assert.NotEmpty(t, img.Data)
}

func TestDecodeImageBareBase64(t *testing.T) {
	img, err := DecodeImage(pixelPNG)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestDecodeImageRejectsNonImages(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"not base64":  "data:image/png;base64,@@@",
		"no base64":   "data:image/png,abc",
		"plain text":  "data:text/plain;base64,aGVsbG8gd29ybGQ=",
		"missing sep": "data:image/png;base64",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeImage(input)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media")

	img, err := DecodeImage(pixelPNG)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipes/images/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/media/"+key, store.URL(key))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, img.Data, data)

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(context.Background(), key))
	assert.Equal(t, "", store.URL(""))
}

type fakeObjectAPI struct {
	put     []*s3.PutObjectInput
	deleted []*s3.DeleteObjectInput
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = append(f.put, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, params)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	api := &fakeObjectAPI{}
	store := newS3Store(api, "foodgram", "https://cdn.example.com/")

	img, err := DecodeImage(pixelPNG)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), img)
	require.NoError(t, err)

	require.Len(t, api.put, 1)
	assert.Equal(t, "foodgram", *api.put[0].Bucket)
	assert.Equal(t, key, *api.put[0].Key)
	assert.Equal(t, "image/png", *api.put[0].ContentType)
	assert.Equal(t, "https://cdn.example.com/"+key, store.URL(key))

	require.NoError(t, store.Delete(context.Background(), key))
	require.Len(t, api.deleted, 1)
	assert.Equal(t, key, *api.deleted[0].Key)

	require.NoError(t, store.Delete(context.Background(), ""))
	assert.Len(t, api.deleted, 1)
}

func TestOpenSelectsBackend(t *testing.T) {
	store, err := Open(context.Background(), &config.Config{
		StorageBackend: "local",
		MediaRoot:      t.TempDir(),
		MediaURL:       "/media",
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
	assert.Equal(t, "/media/recipes/images/a.png", store.URL("recipes/images/a.png"))
}

package tasks

import (
	"context"
	"errors"
	"testing"

	"foodgram-api/internal/storage"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	deleted []string
	err     error
}

func (f *fakeStore) Save(ctx context.Context, img storage.Image) (string, error) {
	return "", nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) URL(key string) string {
	return key
}

func newImageDeleteTask(t *testing.T, key string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(ImageDeletePayload{Key: key})
	require.NoError(t, err)
	return asynq.NewTask(TypeImageDelete, payload)
}

func TestImageDeleteHandler(t *testing.T) {
	store := &fakeStore{}
	handler := NewImageDeleteHandler(store)

	err := handler.ProcessTask(context.Background(), newImageDeleteTask(t, "recipes/images/a.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"recipes/images/a.png"}, store.deleted)
}

func TestImageDeleteHandlerPropagatesStoreErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("bucket unavailable")}
	handler := NewImageDeleteHandler(store)

	err := handler.ProcessTask(context.Background(), newImageDeleteTask(t, "recipes/images/a.png"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestImageDeleteHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewImageDeleteHandler(&fakeStore{})

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeImageDelete, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRecipePublishedHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewRecipePublishedHandler(nil)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeRecipePublished, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

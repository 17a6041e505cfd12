package memesong

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memesong/memesong/pkg/llm"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/preset"
)

type completerFunc func(ctx context.Context, key string, req llm.Request) (string, error)

func (f completerFunc) Complete(ctx context.Context, key string, req llm.Request) (string, error) {
	return f(ctx, key, req)
}

func TestKeyChain(t *testing.T) {
	ctx := context.Background()

	k := NewKeyChain(" flag-key ", nil)
	key, err := k.GetKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", key)
	assert.False(t, k.Persistent())

	require.NoError(t, k.SetKey(ctx, "runtime-key"))
	key, err = k.GetKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "runtime-key", key)
}

func TestServiceStore(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, &Config{
		DBType: "sqlite",
		DBConn: filepath.Join(t.TempDir(), "memesong.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop() })
	require.True(t, svc.Keys().Persistent())

	key, err := svc.Keys().GetKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, svc.Keys().SetKey(ctx, "stored-key"))

	// A new chain over the same store sees the persisted key.
	again := NewKeyChain("", svc.Store().NewKeyStore(Provider, DefaultAccount))
	key, err = again.GetKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", key)

	gen := pipeline.New(&pipeline.Config{
		Keys: again,
		Completer: completerFunc(func(_ context.Context, key string, _ llm.Request) (string, error) {
			assert.Equal(t, "stored-key", key)
			return "---TITLE---\nT\n---STYLE---\nS\n---LYRICS---\nL", nil
		}),
		StatusInterval: -1,
	})
	history := NewService(gen, again, svc.Store(), "test-model", nil)

	res, err := history.Generate(ctx, pipeline.Request{Context: "a very spicy take", Preset: preset.Default()})
	require.NoError(t, err)
	assert.Equal(t, "T", res.Song.Title)

	songs, err := history.Songs(ctx, 1, 10, preset.Default().ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "a very spicy take", songs[0].Content)
	assert.Equal(t, "test-model", songs[0].Model)
	assert.Equal(t, "L", songs[0].Lyrics)

	none, err := history.Songs(ctx, 1, 10, "opera")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceWithoutStore(t *testing.T) {
	svc, err := New(context.Background(), &Config{Key: "k"})
	require.NoError(t, err)
	assert.Nil(t, svc.Store())
	songs, err := svc.Songs(context.Background(), 1, 10, "")
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &Config{OCR: "crystal-ball"})
	require.Error(t, err)
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient(0, "http://localhost:8080")
	require.NoError(t, err)
	assert.NotNil(t, c.Transport)

	_, err = NewHTTPClient(0, "://bad")
	require.Error(t, err)
}

package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/cmd/generate"
	"github.com/memesong/memesong/pkg/logging"
)

func newServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{
				"role":    "assistant",
				"content": "---TITLE---\nBatch Banger\n---STYLE---\nopera\n---LYRICS---\nla la la",
			}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCSV(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls)
	dir := t.TempDir()
	input := filepath.Join(dir, "items.csv")
	csv := "image,text,preset\n,first spicy take,opera\n,second spicy take,\n,,\n,third spicy take,\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0644))
	output := filepath.Join(dir, "out")

	err := Run(context.Background(), &Config{
		Config: memesong.Config{
			Key:            "k",
			BaseURL:        srv.URL + "/v1",
			StatusInterval: -1,
			Logger:         logging.Discard(),
		},
		Input:  input,
		Output: output,
		Preset: "sea-shanty",
		Limit:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	entries, err := os.ReadDir(output)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var presets []string
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(output, e.Name()))
		require.NoError(t, err)
		var o generate.Output
		require.NoError(t, yaml.Unmarshal(b, &o))
		assert.Equal(t, "Batch Banger", o.Title)
		presets = append(presets, o.Preset)
	}
	assert.ElementsMatch(t, []string{"opera", "sea-shanty"}, presets)
}

func TestRunTooManyErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls)
	dir := t.TempDir()
	input := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(input, []byte(`[{"text":""},{"image":"nope.png"},{"text":"never reached"}]`), 0644))

	err := Run(context.Background(), &Config{
		Config: memesong.Config{
			Key:            "k",
			BaseURL:        srv.URL + "/v1",
			StatusInterval: -1,
			Logger:         logging.Discard(),
		},
		Input:     input,
		Output:    filepath.Join(dir, "out"),
		MaxErrors: 2,
	})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestUnmarshal(t *testing.T) {
	_, err := unmarshal(".xml", nil)
	require.Error(t, err)

	is, err := unmarshal(".json", []byte(`[{"image":"a.png","text":"t","preset":"opera"}]`))
	require.NoError(t, err)
	require.Len(t, is, 1)
	assert.Equal(t, item{Image: "a.png", Text: "t", Preset: "opera"}, *is[0])
}

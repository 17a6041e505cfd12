package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memesong/memesong/pkg/storage"
)

func seed(t *testing.T, db string) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.New("sqlite", db, false)
	require.NoError(t, err)
	require.NoError(t, store.Start(ctx))
	defer func() { _ = store.Stop() }()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.SetSong(ctx, &storage.Song{Preset: "opera", Title: "Aria of Anger", Content: "line one\nline two"}))
	require.NoError(t, store.SetSong(ctx, &storage.Song{Preset: "diss-rap", Title: "Bars", Content: "bars"}))
}

func TestRunTable(t *testing.T) {
	db := filepath.Join(t.TempDir(), "memesong.db")
	seed(t, db)

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &Config{DBType: "sqlite", DBConn: db, Preset: "opera"}, &buf))
	out := buf.String()
	assert.Contains(t, out, "Aria of Anger")
	assert.Contains(t, out, "line one line two")
	assert.NotContains(t, out, "Bars")
}

func TestRunCSV(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "memesong.db")
	seed(t, db)
	out := filepath.Join(dir, "history.csv")

	require.NoError(t, Run(context.Background(), &Config{DBType: "sqlite", DBConn: db, Output: out}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var songs []*storage.Song
	require.NoError(t, gocsv.UnmarshalBytes(b, &songs))
	require.Len(t, songs, 2)
	assert.Equal(t, "Bars", songs[0].Title)
	assert.Equal(t, "Aria of Anger", songs[1].Title)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "short", summary("short", 10))
	assert.Equal(t, "abcd…", summary("abcdefgh", 5))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "songs.csv")
	songs := []*storage.Song{{ID: "01", Title: "Solo", Lyrics: "la, la\nla"}}

	require.NoError(t, export(out, songs))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var got []*storage.Song
	require.NoError(t, gocsv.UnmarshalBytes(b, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "la, la\nla", got[0].Lyrics)

	require.Error(t, export(filepath.Join(dir, "missing", "songs.csv"), songs))
}

package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/memesong/memesong/pkg/lyrics"
	"github.com/memesong/memesong/pkg/pipeline"
)

// Output is the written form of a generated song.
type Output struct {
	Title     string `json:"title" yaml:"title"`
	Style     string `json:"style" yaml:"style"`
	Lyrics    string `json:"lyrics" yaml:"lyrics"`
	Preset    string `json:"preset" yaml:"preset"`
	Content   string `json:"content" yaml:"content"`
	Context   string `json:"context,omitempty" yaml:"context,omitempty"`
	Extracted string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
}

func NewOutput(res *pipeline.Result) *Output {
	return &Output{
		Title:     res.Song.Title,
		Style:     res.Song.Style,
		Lyrics:    res.Song.Lyrics,
		Preset:    res.Preset.ID,
		Content:   res.Content,
		Context:   res.Context,
		Extracted: res.Extracted,
	}
}

func (o *Output) song() lyrics.Song {
	return lyrics.Song{Title: o.Title, Style: o.Style, Lyrics: o.Lyrics}
}

// Write writes the song to path, with the format picked by its extension.
// An empty path prints markdown to stdout.
func Write(path string, o *Output) error {
	if path == "" {
		return Encode(os.Stdout, ".md", o)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("generate: couldn't create output folder: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("generate: couldn't create output file: %w", err)
	}
	if err := Encode(f, filepath.Ext(path), o); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("generate: couldn't close output file: %w", err)
	}
	return nil
}

func Encode(w io.Writer, ext string, o *Output) error {
	var err error
	switch ext {
	case ".json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(o)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = errors.Join(enc.Encode(o), enc.Close())
	case ".txt":
		_, err = fmt.Fprintf(w, "%s\n\n%s\n\n%s\n", o.Title, o.Style, o.Lyrics)
	case ".md", "":
		_, err = io.WriteString(w, o.song().Markdown())
	default:
		return fmt.Errorf("generate: unsupported output format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("generate: couldn't write output: %w", err)
	}
	return nil
}

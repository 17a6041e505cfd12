package history

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/memesong/memesong/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Page   int
	Size   int
	Preset string
	Output string
}

// Run lists the stored songs, or exports them as csv when an output file is
// given.
func Run(ctx context.Context, cfg *Config) error {
	return run(ctx, cfg, os.Stdout)
}

func run(ctx context.Context, cfg *Config, w io.Writer) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("history: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("history: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("history: couldn't migrate orm store: %w", err)
	}

	size := cfg.Size
	if size <= 0 {
		size = 50
	}
	var filters []storage.Filter
	if cfg.Preset != "" {
		filters = append(filters, storage.Where("preset = ?", cfg.Preset))
	}
	songs, err := store.ListSongs(ctx, cfg.Page, size, "", filters...)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if cfg.Output != "" {
		return export(cfg.Output, songs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPRESET\tTITLE\tCONTENT")
	for _, s := range songs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Preset, s.Title, summary(s.Content, 40))
	}
	return tw.Flush()
}

func export(path string, songs []*storage.Song) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("history: couldn't create output file: %w", err)
	}
	if err := gocsv.MarshalFile(&songs, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("history: couldn't write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("history: couldn't close output file: %w", err)
	}
	return nil
}

func summary(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

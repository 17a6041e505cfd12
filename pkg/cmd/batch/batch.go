package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/oklog/ulid/v2"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/cmd/generate"
	"github.com/memesong/memesong/pkg/image"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/preset"
)

type Config struct {
	memesong.Config

	Input  string
	Output string
	Preset string
	Limit  int
	// MaxErrors stops the batch after that many consecutive failures.
	MaxErrors int
}

type item struct {
	Image  string `json:"image" csv:"image"`
	Text   string `json:"text" csv:"text"`
	Preset string `json:"preset" csv:"preset"`
}

// Run generates a song for every item of the input file, one at a time.
func Run(ctx context.Context, cfg *Config) error {
	log := cfg.Logger
	if log == nil {
		log = logging.New(cfg.Debug)
		cfg.Logger = log
	}
	var count, failed int
	log.Info("batch: started")
	defer func() {
		log.Infof("batch: ended (%d ok, %d failed)", count, failed)
	}()

	b, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("batch: couldn't read input file: %w", err)
	}
	items, err := unmarshal(filepath.Ext(cfg.Input), b)
	if err != nil {
		return fmt.Errorf("batch: couldn't unmarshal input: %w", err)
	}

	output := cfg.Output
	if output == "" {
		output = "songs"
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("batch: couldn't create output folder: %w", err)
	}

	svc, err := memesong.New(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Warnf("batch: couldn't stop service: %v", err)
		}
	}()

	maxErrors := cfg.MaxErrors
	if maxErrors == 0 {
		maxErrors = 3
	}
	// Relative image paths are resolved against the input file.
	dir := filepath.Dir(cfg.Input)
	start := time.Now()
	nErr := 0
	for i, it := range items {
		if cfg.Limit > 0 && count >= cfg.Limit {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("batch: %w", ctx.Err())
		default:
		}
		js, _ := json.Marshal(it)
		log.Debugf("batch: item %d %s", i, js)

		name, err := process(ctx, svc, cfg.Preset, dir, output, it)
		if err != nil {
			failed++
			nErr++
			log.Warnf("batch: item %d: %v", i, err)
			if nErr >= maxErrors {
				return fmt.Errorf("batch: too many consecutive errors: %w", err)
			}
			continue
		}
		nErr = 0
		count++
		log.Infof("batch: item %d written to %s", i, name)
	}
	if count > 0 {
		total := time.Since(start)
		log.Infof("batch: total time %s, average time %s", total, total/time.Duration(count))
	}
	return nil
}

func unmarshal(ext string, b []byte) ([]*item, error) {
	var is []*item
	switch ext {
	case ".json":
		if err := json.Unmarshal(b, &is); err != nil {
			return nil, fmt.Errorf("couldn't unmarshal items: %w", err)
		}
	case ".csv":
		if err := gocsv.UnmarshalBytes(b, &is); err != nil {
			return nil, fmt.Errorf("couldn't unmarshal items: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format: %s", ext)
	}
	return is, nil
}

func process(ctx context.Context, svc *memesong.Service, defaultPreset, dir, output string, it *item) (string, error) {
	id := it.Preset
	if id == "" {
		id = defaultPreset
	}
	p, err := preset.Get(id)
	if err != nil {
		return "", err
	}
	var img *image.Attachment
	if path := strings.TrimSpace(it.Image); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		img, err = image.Load(path)
		if err != nil {
			return "", err
		}
	}
	res, err := svc.Generate(ctx, pipeline.Request{
		Image:   img,
		Context: it.Text,
		Preset:  p,
	})
	if err != nil {
		return "", err
	}
	name := filepath.Join(output, ulid.Make().String()+".yaml")
	if err := generate.Write(name, generate.NewOutput(res)); err != nil {
		return "", err
	}
	return name, nil
}

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/image"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/preset"
)

type Config struct {
	memesong.Config

	Image  string
	Text   string
	Preset string
	Output string
}

// Run generates a single song from a screenshot and/or text.
func Run(ctx context.Context, cfg *Config) error {
	log := cfg.Logger
	if log == nil {
		log = logging.New(cfg.Debug)
		cfg.Logger = log
	}
	p, err := preset.Get(cfg.Preset)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	var img *image.Attachment
	if cfg.Image != "" {
		img, err = image.Load(cfg.Image)
		if err != nil {
			return fmt.Errorf("generate: couldn't load image: %w", err)
		}
	}

	if cfg.Observer == nil {
		cfg.Observer = observer(log)
	}
	svc, err := memesong.New(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Warnf("generate: couldn't stop service: %v", err)
		}
	}()

	res, err := svc.Generate(ctx, pipeline.Request{
		Image:   img,
		Context: cfg.Text,
		Preset:  p,
	})
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			log.Debugf("generate: %s", perr.Detail())
		}
		return fmt.Errorf("generate: %w", err)
	}
	return Write(cfg.Output, NewOutput(res))
}

// observer logs the progress of a run.
func observer(log logrus.FieldLogger) pipeline.Observer {
	return func(e pipeline.Event) {
		switch e.Type {
		case pipeline.EventState:
			log.Debugf("generate: state %s", e.State)
		case pipeline.EventStatus:
			if e.Status != "" {
				log.Info(e.Status)
			}
		case pipeline.EventProgress:
			log.Debugf("generate: ocr %d%%", e.Progress)
		case pipeline.EventText:
			log.Debugf("generate: extracted text:\n%s", indent(e.Text))
		}
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

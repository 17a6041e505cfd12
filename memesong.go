// Package memesong wires the song generator with its collaborators: the
// OCR backend, the completion client, the credential and the history store.
package memesong

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong/pkg/llm"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/ocr"
	"github.com/memesong/memesong/pkg/ocr/vision"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/storage"
)

const (
	Provider       = "xai"
	DefaultAccount = "default"
	OCRVision      = "vision"
	OCRTesseract   = "tesseract"
)

// RecognizerFunc builds an OCR backend.
type RecognizerFunc func(log logrus.FieldLogger) ocr.Recognizer

type Config struct {
	Debug   bool
	Proxy   string
	Timeout time.Duration

	Key         string
	Account     string
	BaseURL     string
	Model       string
	VisionModel string

	OCR      string
	Language string
	// Recognizers holds the OCR backends available besides vision, by name.
	Recognizers map[string]RecognizerFunc

	DBType string
	DBConn string

	StatusInterval time.Duration
	Observer       pipeline.Observer
	Logger         logrus.FieldLogger
}

// NewHTTPClient returns an http client with the given timeout and optional
// proxy.
func NewHTTPClient(timeout time.Duration, proxy string) (*http.Client, error) {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("memesong: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return httpClient, nil
}

type keyStore interface {
	GetKey(ctx context.Context) (string, error)
	SetKey(ctx context.Context, key string) error
}

// KeyChain resolves the credential from memory first and then from the
// store. Keys set at runtime replace the in-memory key and are persisted
// when a store is available.
type KeyChain struct {
	mu    sync.RWMutex
	key   string
	store keyStore
}

func NewKeyChain(key string, store keyStore) *KeyChain {
	return &KeyChain{key: strings.TrimSpace(key), store: store}
}

func (k *KeyChain) GetKey(ctx context.Context) (string, error) {
	k.mu.RLock()
	key := k.key
	k.mu.RUnlock()
	if key != "" || k.store == nil {
		return key, nil
	}
	key, err := k.store.GetKey(ctx)
	if err != nil {
		return "", fmt.Errorf("memesong: couldn't get key: %w", err)
	}
	return key, nil
}

func (k *KeyChain) SetKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if k.store != nil {
		if err := k.store.SetKey(ctx, key); err != nil {
			return fmt.Errorf("memesong: couldn't set key: %w", err)
		}
	}
	k.mu.Lock()
	k.key = key
	k.mu.Unlock()
	return nil
}

// Persistent reports whether keys survive a restart.
func (k *KeyChain) Persistent() bool {
	return k.store != nil
}

type Service struct {
	log       logrus.FieldLogger
	store     *storage.Store
	keys      *KeyChain
	generator *pipeline.Generator
	model     string
}

// New builds the service. The store is started and migrated when a db type
// is configured.
func New(ctx context.Context, cfg *Config) (*Service, error) {
	log := logging.OrDiscard(cfg.Logger)

	httpClient, err := NewHTTPClient(cfg.Timeout, cfg.Proxy)
	if err != nil {
		return nil, err
	}

	var store *storage.Store
	keys := NewKeyChain(cfg.Key, nil)
	if cfg.DBType != "" {
		store, err = storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("memesong: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return nil, fmt.Errorf("memesong: couldn't start orm store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("memesong: couldn't migrate orm store: %w", err)
		}
		account := cfg.Account
		if account == "" {
			account = DefaultAccount
		}
		keys = NewKeyChain(cfg.Key, store.NewKeyStore(Provider, account))
	}

	client := llm.New(&llm.Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		VisionModel: cfg.VisionModel,
		Client:      httpClient,
		Logger:      log,
	})

	var recognizer ocr.Recognizer
	switch backend := cfg.OCR; backend {
	case "", OCRVision:
		recognizer = vision.New(client, keys.GetKey)
	default:
		fn, ok := cfg.Recognizers[backend]
		if !ok {
			return nil, fmt.Errorf("memesong: unknown ocr backend: %s", backend)
		}
		recognizer = fn(log)
	}

	model := cfg.Model
	if model == "" {
		model = llm.DefaultModel
	}
	generator := pipeline.New(&pipeline.Config{
		Keys:           keys,
		Recognizer:     recognizer,
		Completer:      client,
		Model:          model,
		Language:       cfg.Language,
		StatusInterval: cfg.StatusInterval,
		Observer:       cfg.Observer,
		Logger:         log,
	})
	return &Service{
		log:       log,
		store:     store,
		keys:      keys,
		generator: generator,
		model:     model,
	}, nil
}

// NewService assembles a service from already built parts.
func NewService(generator *pipeline.Generator, keys *KeyChain, store *storage.Store, model string, log logrus.FieldLogger) *Service {
	return &Service{
		log:       logging.OrDiscard(log),
		store:     store,
		keys:      keys,
		generator: generator,
		model:     model,
	}
}

func (s *Service) Generator() *pipeline.Generator {
	return s.generator
}

func (s *Service) Keys() *KeyChain {
	return s.keys
}

// Snapshot returns the current state of the generator.
func (s *Service) Snapshot() pipeline.Snapshot {
	return s.generator.Snapshot()
}

// SetKey replaces the credential used by the next runs.
func (s *Service) SetKey(ctx context.Context, key string) error {
	return s.keys.SetKey(ctx, key)
}

// Store returns the history store, nil when none is configured.
func (s *Service) Store() *storage.Store {
	return s.store
}

// Generate runs the generator and records the song in the history. A
// failure to record is logged and does not fail the run.
func (s *Service) Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	res, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return res, nil
	}
	song := &storage.Song{
		Preset:     res.Preset.ID,
		Source:     res.Source,
		Content:    res.Content,
		Context:    res.Context,
		Model:      s.model,
		Title:      res.Song.Title,
		Style:      res.Song.Style,
		Lyrics:     res.Song.Lyrics,
		Confidence: res.Confidence,
	}
	if err := s.store.SetSong(ctx, song); err != nil {
		s.log.Warnf("memesong: couldn't save song: %v", err)
		return res, nil
	}
	s.log.Debugf("memesong: saved song %s", song.ID)
	return res, nil
}

// Songs lists the history. Without a store the list is empty.
func (s *Service) Songs(ctx context.Context, page, size int, presetID string) ([]*storage.Song, error) {
	if s.store == nil {
		return []*storage.Song{}, nil
	}
	var filters []storage.Filter
	if presetID != "" {
		filters = append(filters, storage.Where("preset = ?", presetID))
	}
	return s.store.ListSongs(ctx, page, size, "", filters...)
}

func (s *Service) Stop() error {
	if s.store == nil {
		return nil
	}
	return s.store.Stop()
}

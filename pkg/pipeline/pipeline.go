// Package pipeline turns a screenshot or pasted text into song lyrics.
//
// A run validates its inputs, recognizes and cleans the text of the image,
// builds the prompts, asks the language model for a song and parses the
// reply. Runs are sequential: a Generator refuses to start a run while
// another one is in flight. Every step is published as an Event and folded
// into a Snapshot that front ends can render.
package pipeline

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong/pkg/image"
	"github.com/memesong/memesong/pkg/llm"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/lyrics"
	"github.com/memesong/memesong/pkg/ocr"
	"github.com/memesong/memesong/pkg/preset"
	"github.com/memesong/memesong/pkg/prompt"
)

// MinContentLength is the minimum number of characters of cleaned text an
// image must yield to be used as song content.
const MinContentLength = 10

const DefaultStatusInterval = 2 * time.Second

var DefaultStatusMessages = []string{
	"🔍 Reading the screenshot...",
	"🎵 Analyzing the post...",
	"🎤 Writing fire bars...",
	"🎹 Composing the hook...",
	"🔥 Adding maximum pettiness...",
	"✨ Making it viral-worthy...",
	"🎭 Perfecting the sass...",
}

// KeyStore provides the API credential. An unset key is returned as an
// empty string.
type KeyStore interface {
	GetKey(ctx context.Context) (string, error)
}

// StaticKey is a fixed credential.
type StaticKey string

func (k StaticKey) GetKey(context.Context) (string, error) {
	return string(k), nil
}

// Completer sends the prompts to the language model.
type Completer interface {
	Complete(ctx context.Context, key string, req llm.Request) (string, error)
}

type Observer func(Event)

// Request holds the inputs of a run.
type Request struct {
	Image   *image.Attachment
	Context string
	// Preset defaults to preset.Default() when zero.
	Preset preset.Preset
}

// Result is a successful run.
type Result struct {
	Song   lyrics.Song
	Preset preset.Preset
	// Content is the primary subject of the song.
	Content string
	// Context is the steering text sent along the content, if any.
	Context string
	// Extracted is the cleaned text of the image.
	Extracted  string
	Confidence float64
	Source     string
}

type Config struct {
	Keys           KeyStore
	Recognizer     ocr.Recognizer
	Completer      Completer
	Model          string
	Language       string
	StatusInterval time.Duration
	StatusMessages []string
	Observer       Observer
	Logger         logrus.FieldLogger
}

type Generator struct {
	keys       KeyStore
	recognizer ocr.Recognizer
	completer  Completer
	model      string
	language   string
	interval   time.Duration
	messages   []string
	observer   Observer
	log        logrus.FieldLogger

	busy atomic.Bool

	// emitMu keeps events ordered, mu guards the snapshot.
	emitMu sync.Mutex
	mu     sync.RWMutex
	snap   Snapshot
}

func New(cfg *Config) *Generator {
	interval := cfg.StatusInterval
	if interval == 0 {
		interval = DefaultStatusInterval
	}
	messages := cfg.StatusMessages
	if messages == nil {
		messages = DefaultStatusMessages
	}
	language := cfg.Language
	if language == "" {
		language = ocr.DefaultLanguage
	}
	return &Generator{
		keys:       cfg.Keys,
		recognizer: cfg.Recognizer,
		completer:  cfg.Completer,
		model:      cfg.Model,
		language:   language,
		interval:   interval,
		messages:   messages,
		observer:   cfg.Observer,
		log:        logging.OrDiscard(cfg.Logger),
	}
}

// Busy reports whether a run is in flight.
func (g *Generator) Busy() bool {
	return g.busy.Load()
}

// Snapshot returns the current observable state.
func (g *Generator) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

func (g *Generator) emit(e Event) {
	g.emitMu.Lock()
	defer g.emitMu.Unlock()
	g.publish(e)
}

// publish must be called with emitMu held.
func (g *Generator) publish(e Event) {
	g.mu.Lock()
	g.snap = g.snap.Apply(e)
	g.mu.Unlock()
	if g.observer != nil {
		g.observer(e)
	}
}

func (g *Generator) setState(s State) {
	g.emit(Event{Type: EventState, State: s})
}

func (g *Generator) status(msg string) {
	g.emit(Event{Type: EventStatus, Status: msg})
}

// finish releases the busy flag and publishes the closing events of a run.
// Both happen under emitMu so a run started from an observer can't interleave
// its events with these ones.
func (g *Generator) finish(events ...Event) {
	g.emitMu.Lock()
	defer g.emitMu.Unlock()
	g.busy.Store(false)
	for _, e := range events {
		g.publish(e)
	}
}

// Generate runs the pipeline for the request. It returns ErrBusy, without
// side effects, when another run is in flight. Failures are *Error values.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	stop := func() {}
	finished := false
	defer func() {
		// Only reached on panic.
		if !finished {
			stop()
			g.finish(Event{Type: EventState, State: Idle})
		}
	}()

	g.setState(Validating)
	key, err := g.validate(ctx, req)
	if err != nil {
		finished = true
		return nil, g.fail(err)
	}

	g.emit(Event{Type: EventStarted})
	stop = g.rotateStatus()
	res, err := g.run(ctx, key, req)
	stop()
	finished = true
	if err != nil {
		return nil, g.fail(err)
	}
	g.finish(
		Event{Type: EventSong, Song: res.Song},
		Event{Type: EventState, State: Done},
		Event{Type: EventState, State: Idle},
	)
	g.log.Infof("pipeline: generated %q (%s)", res.Song.Title, res.Preset.ID)
	return res, nil
}

func (g *Generator) fail(err error) error {
	g.finish(
		Event{Type: EventState, State: Failed},
		Event{Type: EventError, Err: err},
		Event{Type: EventState, State: Idle},
	)
	var perr *Error
	if errors.As(err, &perr) {
		g.log.Warnf("pipeline: %s", perr.Detail())
	} else {
		g.log.Warnf("pipeline: %v", err)
	}
	return err
}

func (g *Generator) validate(ctx context.Context, req Request) (string, error) {
	if g.keys == nil {
		return "", &Error{Kind: ErrPrecondition, Message: msgMissingKey}
	}
	key, err := g.keys.GetKey(ctx)
	if err != nil {
		return "", &Error{Kind: ErrPrecondition, Message: msgKeyUnavailable, Err: err}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", &Error{Kind: ErrPrecondition, Message: msgMissingKey}
	}
	if req.Image.Empty() && strings.TrimSpace(req.Context) == "" {
		return "", &Error{Kind: ErrPrecondition, Message: msgMissingContent}
	}
	return key, nil
}

func (g *Generator) run(ctx context.Context, key string, req Request) (*Result, error) {
	p := req.Preset
	if p.IsZero() {
		p = preset.Default()
	}
	res := &Result{Preset: p}
	additional := strings.TrimSpace(req.Context)

	var content string
	if !req.Image.Empty() {
		res.Source = req.Image.Name
		cleaned, confidence, err := g.extract(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		res.Extracted = cleaned
		res.Confidence = confidence
		if utf8.RuneCountInString(cleaned) < MinContentLength {
			if additional == "" {
				return nil, &Error{Kind: ErrExtraction, Message: msgNotEnoughText}
			}
			g.log.Debugf("pipeline: image text too short (%q), using context instead", cleaned)
		} else {
			content = cleaned
		}
	}

	// Without usable image text the context becomes the subject itself.
	if content == "" {
		content = additional
		additional = ""
	}
	res.Content = content
	res.Context = additional

	g.setState(AwaitingCompletion)
	g.status("🎵 Writing your banger...")
	if g.completer == nil {
		return nil, completionError(errors.New("pipeline: no completer configured"))
	}
	pr := prompt.Build(content, p, additional)
	raw, err := g.completer.Complete(ctx, key, llm.Request{
		Model:  g.model,
		System: pr.System,
		User:   pr.User,
	})
	if err != nil {
		return nil, completionError(err)
	}
	g.log.Debugf("pipeline: completion %d chars", len(raw))
	res.Song = lyrics.Parse(raw)
	return res, nil
}

func (g *Generator) extract(ctx context.Context, img *image.Attachment) (string, float64, error) {
	g.setState(ExtractingText)
	g.status("🔍 Reading text from screenshot...")
	if g.recognizer == nil {
		return "", 0, &Error{Kind: ErrExtraction, Message: msgOCRFailed, Err: errors.New("pipeline: no recognizer configured")}
	}
	out, err := g.recognizer.Recognize(ctx, img.Preview, g.language, func(p ocr.Progress) {
		if p.Status != ocr.StatusRecognizing {
			return
		}
		g.emit(Event{Type: EventProgress, Progress: p.Percent()})
	})
	if err != nil {
		return "", 0, &Error{Kind: ErrExtraction, Message: msgOCRFailed, Err: err}
	}
	g.log.Debugf("pipeline: recognized %d chars, confidence %.1f", len(out.Text), out.Confidence)

	g.setState(Cleaning)
	cleaned := ocr.Clean(out.Text)
	g.emit(Event{Type: EventText, Text: cleaned})
	return cleaned, out.Confidence, nil
}

func completionError(err error) error {
	var (
		apiErr *llm.APIError
		netErr net.Error
		urlErr *url.Error
	)
	msg := msgGenerateFailed
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Error()
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		msg = msgTimeout
	case errors.Is(err, context.Canceled):
		msg = msgCanceled
	case errors.As(err, &urlErr):
		msg = msgUnreachable
	}
	return &Error{Kind: ErrCompletion, Message: msg, Err: err}
}

// rotateStatus cycles the status messages until the returned function is
// called. No status is emitted once it returns. Calling it again is a no-op.
func (g *Generator) rotateStatus() func() {
	if len(g.messages) == 0 || g.interval < 0 {
		return func() {}
	}
	g.status(g.messages[0])
	ticker := time.NewTicker(g.interval)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				i = (i + 1) % len(g.messages)
				g.status(g.messages[i])
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			wg.Wait()
		})
	}
}

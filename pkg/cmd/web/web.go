package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/image"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/preset"
	"github.com/memesong/memesong/pkg/storage"
)

const defaultMaxUpload = 10 << 20

type Config struct {
	memesong.Config

	Addr        string
	Credentials map[string]string
	MaxUpload   int64
}

type service interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Snapshot() pipeline.Snapshot
	SetKey(ctx context.Context, key string) error
	Songs(ctx context.Context, page, size int, presetID string) ([]*storage.Song, error)
}

// Serve starts the http server and blocks until the context is done.
func Serve(ctx context.Context, cfg *Config) error {
	log := cfg.Logger
	if log == nil {
		log = logging.New(cfg.Debug)
		cfg.Logger = log
	}
	log.Info("web: server started")
	defer log.Info("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := memesong.New(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Warnf("web: couldn't stop service: %v", err)
		}
	}()

	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: newRouter(svc, cfg, log),
	}
	errC := make(chan error, 1)
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Infof("web: listening on %s", note)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- fmt.Errorf("web: couldn't start server: %w", err)
			return
		}
		errC <- nil
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: couldn't shutdown server: %w", err)
	}
	return <-errC
}

func newRouter(svc service, cfg *Config, log logrus.FieldLogger) http.Handler {
	maxUpload := cfg.MaxUpload
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	// Completions can take a while.
	mux.Use(middleware.Timeout(3 * time.Minute))
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}

	mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}

		r.Get("/api/presets", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, log, http.StatusOK, preset.All())
		})

		r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, log, http.StatusOK, svc.Snapshot())
		})

		r.Put("/api/key", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Key string `json:"key"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, log, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
				return
			}
			if err := svc.SetKey(r.Context(), body.Key); err != nil {
				log.Errorf("web: couldn't set key: %v", err)
				writeError(w, log, http.StatusInternalServerError, "couldn't save key")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/api/generate", func(w http.ResponseWriter, r *http.Request) {
			req, err := parseRequest(w, r, maxUpload)
			if err != nil {
				writeError(w, log, http.StatusBadRequest, err.Error())
				return
			}
			res, err := svc.Generate(r.Context(), *req)
			if err != nil {
				writeError(w, log, statusCode(err), pipeline.Message(err))
				return
			}
			writeJSON(w, log, http.StatusOK, &Song{
				Title:     res.Song.Title,
				Style:     res.Song.Style,
				Lyrics:    res.Song.Lyrics,
				Preset:    res.Preset.ID,
				Content:   res.Content,
				Extracted: res.Extracted,
			})
		})

		r.Get("/api/songs", func(w http.ResponseWriter, r *http.Request) {
			page, err := strconv.Atoi(r.URL.Query().Get("page"))
			if err != nil {
				page = 1
			}
			size, err := strconv.Atoi(r.URL.Query().Get("size"))
			if err != nil || size <= 0 {
				size = 100
			}
			songs, err := svc.Songs(r.Context(), page, size, r.URL.Query().Get("preset"))
			if err != nil {
				log.Errorf("web: couldn't list songs: %v", err)
				writeError(w, log, http.StatusInternalServerError, fmt.Sprintf("couldn't list songs: %v", err))
				return
			}
			writeJSON(w, log, http.StatusOK, songs)
		})
	})
	return mux
}

func parseRequest(w http.ResponseWriter, r *http.Request, maxUpload int64) (*pipeline.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	p, err := preset.Get(r.FormValue("preset"))
	if err != nil {
		return nil, err
	}
	req := &pipeline.Request{
		Context: r.FormValue("context"),
		Preset:  p,
	}
	f, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("couldn't read image: %w", err)
	}
	img, err := image.FromBytes(header.Filename, b)
	if err != nil {
		return nil, err
	}
	req.Image = img
	return req, nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("web: couldn't encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, code int, msg string) {
	writeJSON(w, log, code, map[string]string{"error": msg})
}

type Song struct {
	Title     string `json:"title"`
	Style     string `json:"style"`
	Lyrics    string `json:"lyrics"`
	Preset    string `json:"preset"`
	Content   string `json:"content"`
	Extracted string `json:"extracted,omitempty"`
}

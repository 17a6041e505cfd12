package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/lyrics"
	"github.com/memesong/memesong/pkg/pipeline"
	"github.com/memesong/memesong/pkg/preset"
	"github.com/memesong/memesong/pkg/storage"
)

type fakeService struct {
	mu     sync.Mutex
	err    error
	reqs   []pipeline.Request
	keys   []string
	query  []any
	snap   pipeline.Snapshot
	songs  []*storage.Song
	result *pipeline.Result
}

func (f *fakeService) Generate(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeService) Snapshot() pipeline.Snapshot {
	return f.snap
}

func (f *fakeService) SetKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeService) Songs(_ context.Context, page, size int, presetID string) ([]*storage.Song, error) {
	f.query = []any{page, size, presetID}
	return f.songs, nil
}

func newFake() *fakeService {
	return &fakeService{
		result: &pipeline.Result{
			Song:      lyrics.Song{Title: "T", Style: "S", Lyrics: "L"},
			Preset:    preset.Default(),
			Content:   "content",
			Extracted: "extracted",
		},
	}
}

func newTestServer(t *testing.T, svc service, cfg *Config) *httptest.Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	srv := httptest.NewServer(newRouter(svc, cfg, logging.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

type part struct {
	name, filename string
	data           []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := mw.CreateFormFile(p.name, p.filename)
			require.NoError(t, err)
			_, err = fw.Write(p.data)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(p.name, string(p.data)))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postGenerate(t *testing.T, srv *httptest.Server, parts ...part) (*http.Response, map[string]string) {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	resp, err := http.Post(srv.URL+"/api/generate", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestPresets(t *testing.T) {
	srv := newTestServer(t, newFake(), nil)
	resp, err := http.Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []preset.Preset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, preset.All(), got)
}

func TestGenerateText(t *testing.T) {
	svc := newFake()
	srv := newTestServer(t, svc, nil)

	resp, out := postGenerate(t, srv,
		part{name: "context", data: []byte("my hot take")},
		part{name: "preset", data: []byte("opera")},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "T", out["title"])
	assert.Equal(t, "S", out["style"])
	assert.Equal(t, "L", out["lyrics"])
	assert.Equal(t, "extracted", out["extracted"])

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "my hot take", svc.reqs[0].Context)
	assert.Equal(t, "opera", svc.reqs[0].Preset.ID)
	assert.True(t, svc.reqs[0].Image.Empty())
}

func TestGenerateImage(t *testing.T) {
	svc := newFake()
	srv := newTestServer(t, svc, nil)

	resp, _ := postGenerate(t, srv, part{name: "image", filename: "post.png", data: pngBytes(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, svc.reqs, 1)
	img := svc.reqs[0].Image
	require.False(t, img.Empty())
	assert.Equal(t, "post.png", img.Name)
	assert.True(t, strings.HasPrefix(img.Preview, "data:image/png;base64,"))
	assert.Equal(t, preset.Default(), svc.reqs[0].Preset)
}

func TestGenerateBadInput(t *testing.T) {
	svc := newFake()
	srv := newTestServer(t, svc, nil)

	resp, out := postGenerate(t, srv, part{name: "image", filename: "post.txt", data: []byte("not an image")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["error"])

	resp, _ = postGenerate(t, srv, part{name: "context", data: []byte("x")}, part{name: "preset", data: []byte("polka")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, svc.reqs)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"busy", pipeline.ErrBusy, http.StatusConflict, pipeline.ErrBusy.Error()},
		{"precondition", &pipeline.Error{Kind: pipeline.ErrPrecondition, Message: "Please enter your xAI API key"}, http.StatusBadRequest, "Please enter your xAI API key"},
		{"extraction", &pipeline.Error{Kind: pipeline.ErrExtraction, Message: "not enough"}, http.StatusUnprocessableEntity, "not enough"},
		{"completion", &pipeline.Error{Kind: pipeline.ErrCompletion, Message: "Incorrect API key provided"}, http.StatusBadGateway, "Incorrect API key provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFake()
			svc.err = tt.err
			srv := newTestServer(t, svc, nil)
			resp, out := postGenerate(t, srv, part{name: "context", data: []byte("some text")})
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, tt.msg, out["error"])
		})
	}
}

func TestStatus(t *testing.T) {
	svc := newFake()
	svc.snap = pipeline.Snapshot{State: pipeline.ExtractingText, Busy: true, Progress: 42}
	srv := newTestServer(t, svc, nil)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "extracting_text", got["state"])
	assert.Equal(t, true, got["busy"])
	assert.Equal(t, float64(42), got["progress"])
}

func TestKey(t *testing.T) {
	svc := newFake()
	srv := newTestServer(t, svc, nil)

	put := func(body string) int {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/key", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, put(`{"key":"xai-abc"}`))
	assert.Equal(t, http.StatusBadRequest, put(`{`))
	assert.Equal(t, []string{"xai-abc"}, svc.keys)
}

func TestSongs(t *testing.T) {
	svc := newFake()
	svc.songs = []*storage.Song{{ID: "01", Title: "One"}}
	srv := newTestServer(t, svc, nil)

	resp, err := http.Get(srv.URL + "/api/songs?page=2&size=5&preset=opera")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got []*storage.Song
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "One", got[0].Title)
	assert.Equal(t, []any{2, 5, "opera"}, svc.query)
}

func TestBasicAuth(t *testing.T) {
	srv := newTestServer(t, newFake(), &Config{Credentials: map[string]string{"admin": "secret"}})

	resp, err := http.Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/presets", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

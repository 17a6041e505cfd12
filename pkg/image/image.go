package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"
)

var ErrUnsupported = errors.New("image: unsupported format")

// Attachment is an image selected by the user.
type Attachment struct {
	// Preview is a data URL that can be displayed or handed to a recognizer.
	Preview string `json:"preview"`
	// Base64 holds the raw file bytes in standard base64.
	Base64 string `json:"base64"`
	Name   string `json:"name"`
}

// Empty reports whether there's no image attached.
func (a *Attachment) Empty() bool {
	return a == nil || a.Base64 == ""
}

// Bytes returns the decoded file contents.
func (a *Attachment) Bytes() ([]byte, error) {
	if a.Empty() {
		return nil, errors.New("image: empty attachment")
	}
	b, err := base64.StdEncoding.DecodeString(a.Base64)
	if err != nil {
		return nil, fmt.Errorf("image: couldn't decode base64: %w", err)
	}
	return b, nil
}

type DecodeConfig func(io.Reader) (image.Config, error)

var decoders = map[string]DecodeConfig{
	"image/png":  png.DecodeConfig,
	"image/jpeg": jpeg.DecodeConfig,
	"image/gif":  gif.DecodeConfig,
	"image/webp": webp.DecodeConfig,
}

var extensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func contentType(name string, b []byte) string {
	mime := http.DetectContentType(b)
	if _, ok := decoders[mime]; ok {
		return mime
	}
	if m, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return mime
}

// Load reads an image file from disk.
func Load(path string) (*Attachment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: couldn't read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), b)
}

// FromBytes validates the image contents and builds an attachment.
func FromBytes(name string, b []byte) (*Attachment, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("image: %s is empty", name)
	}
	mime := contentType(name, b)
	decode, ok := decoders[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, name, mime)
	}
	cfg, err := decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("image: couldn't decode %s: %w", name, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("image: %s has no pixels", name)
	}
	enc := base64.StdEncoding.EncodeToString(b)
	return &Attachment{
		Preview: fmt.Sprintf("data:%s;base64,%s", mime, enc),
		Base64:  enc,
		Name:    name,
	}, nil
}

// DecodeDataURL returns the bytes and media type of a base64 data URL.
func DecodeDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", fmt.Errorf("image: not a data url")
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("image: malformed data url")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("image: data url isn't base64 encoded")
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("image: couldn't decode data url: %w", err)
	}
	return b, mime, nil
}

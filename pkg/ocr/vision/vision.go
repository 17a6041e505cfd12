// Package vision transcribes screenshots with a multimodal chat model.
package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/memesong/memesong/pkg/ocr"
)

const noText = "NO_TEXT_FOUND"

const instruction = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
	"- No formatting\n" +
	"- No XML/HTML tags\n" +
	"- No markdown\n" +
	"- No explanations\n" +
	"- Preserve line breaks accurately from the visual layout.\n" +
	"If no text found, return '" + noText + "'"

// Client is the vision completion the recognizer relies on.
type Client interface {
	Vision(ctx context.Context, key, image, instruction string) (string, error)
}

// KeyFunc returns the credential for the vision endpoint.
type KeyFunc func(ctx context.Context) (string, error)

type Recognizer struct {
	client Client
	key    KeyFunc
}

func New(client Client, key KeyFunc) *Recognizer {
	return &Recognizer{client: client, key: key}
}

// Recognize ignores the language hint, the model detects it on its own.
func (r *Recognizer) Recognize(ctx context.Context, image, _ string, progress func(ocr.Progress)) (*ocr.Result, error) {
	key, err := r.key(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision: couldn't get key: %w", err)
	}
	ocr.Report(progress, ocr.StatusRecognizing, 0)
	text, err := r.client.Vision(ctx, key, image, instruction)
	if err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}
	ocr.Report(progress, ocr.StatusRecognizing, 1)
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "</image>")
	if text == noText {
		text = ""
	}
	return &ocr.Result{Text: text}, nil
}

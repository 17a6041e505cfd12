// Package ocr defines the text recognition contract used by the generation
// pipeline and the cleanup applied to recognized social media screenshots.
//
// Backends live in subpackages: tesseract runs the engine locally and vision
// asks a multimodal chat model to transcribe the image.
package ocr

import (
	"context"
	"math"
)

// DefaultLanguage is the language hint passed to recognizers.
const DefaultLanguage = "eng"

// StatusRecognizing is the progress status reported while text is being
// recognized. Other statuses (loading, initializing) carry no useful
// percentage.
const StatusRecognizing = "recognizing text"

// Result is the output of a recognition.
type Result struct {
	Text string
	// Confidence ranges 0-100. Zero when the backend doesn't report one.
	Confidence float64
}

// Progress is an out-of-band recognition update.
type Progress struct {
	Status string
	// Progress ranges 0-1.
	Progress float64
}

// Percent converts the progress to an integer percentage in [0, 100].
func (p Progress) Percent() int {
	v := int(math.Round(p.Progress * 100))
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Recognizer extracts text from an image.
//
// The image is a data URL. Progress may be nil; implementations call it
// from the goroutine that invoked Recognize.
type Recognizer interface {
	Recognize(ctx context.Context, image, lang string, progress func(Progress)) (*Result, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, image, lang string, progress func(Progress)) (*Result, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image, lang string, progress func(Progress)) (*Result, error) {
	return f(ctx, image, lang, progress)
}

// Report calls progress if it isn't nil.
func Report(progress func(Progress), status string, value float64) {
	if progress == nil {
		return
	}
	progress(Progress{Status: status, Progress: value})
}

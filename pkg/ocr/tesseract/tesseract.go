// Package tesseract recognizes text locally with the Tesseract engine.
//
// It requires libtesseract and the traineddata files of the requested
// languages to be installed on the host.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong/pkg/image"
	"github.com/memesong/memesong/pkg/logging"
	"github.com/memesong/memesong/pkg/ocr"
)

// engine recognizes the image bytes, calling step with increasing values in
// [0, 1] as it goes.
type engine func(b []byte, lang string, step func(float64)) (*ocr.Result, error)

type Recognizer struct {
	log    logrus.FieldLogger
	engine engine
}

func New(log logrus.FieldLogger) *Recognizer {
	return &Recognizer{
		log:    logging.OrDiscard(log),
		engine: recognize,
	}
}

func (r *Recognizer) Recognize(ctx context.Context, img, lang string, progress func(ocr.Progress)) (*ocr.Result, error) {
	b, _, err := image.DecodeDataURL(img)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	if lang == "" {
		lang = ocr.DefaultLanguage
	}
	ocr.Report(progress, "initializing tesseract", 0)

	type result struct {
		res *ocr.Result
		err error
	}
	// The engine can't be interrupted, so it runs on its own and the result
	// is dropped if the context ends first.
	resC := make(chan result, 1)
	stepC := make(chan float64, 4)
	go func() {
		defer close(stepC)
		res, err := r.engine(b, lang, func(v float64) {
			select {
			case stepC <- v:
			default:
			}
		})
		resC <- result{res: res, err: err}
	}()

	var last float64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case v, ok := <-stepC:
			if !ok {
				stepC = nil
				continue
			}
			if v < last || v >= 1 {
				continue
			}
			last = v
			ocr.Report(progress, ocr.StatusRecognizing, v)
		case out := <-resC:
			if out.err != nil {
				return nil, out.err
			}
			ocr.Report(progress, ocr.StatusRecognizing, 1)
			r.log.Debugf("tesseract: recognized %d chars (confidence %.1f)", len(out.res.Text), out.res.Confidence)
			return out.res, nil
		}
	}
}

func recognize(b []byte, lang string, step func(float64)) (*ocr.Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("tesseract: couldn't set language %s: %w", lang, err)
	}
	if err := client.SetImageFromBytes(b); err != nil {
		return nil, fmt.Errorf("tesseract: couldn't set image: %w", err)
	}
	step(0)
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract: couldn't recognize text: %w", err)
	}
	step(0.5)

	// Word boxes are only used for the confidence score, a failure here
	// doesn't invalidate the text.
	var confidence float64
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil && len(boxes) > 0 {
		var sum float64
		for _, box := range boxes {
			sum += box.Confidence
		}
		confidence = sum / float64(len(boxes))
	}
	step(0.9)
	return &ocr.Result{Text: text, Confidence: confidence}, nil
}

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSONStart means the model response contains neither '{' nor '['.
	ErrNoJSONStart = errors.New("no JSON start found")
	// ErrNoJSONEnd means no matching closer follows the JSON start.
	ErrNoJSONEnd = errors.New("no JSON end found")
	// ErrNotObject means the recovered JSON parsed, but its root is not an object.
	ErrNotObject = errors.New("model output is not a JSON object")
	// ErrUnsupportedImage means the upload is not a PNG, JPEG or WEBP image.
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrConfiguration marks failures that halt a batch before any image is processed.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyResponse means the model returned no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Stage names the extraction step an image failed in.
type Stage string

const (
	StageDecode  Stage = "decode"
	StageInfer   Stage = "infer"
	StageRecover Stage = "recover"
	StageParse   Stage = "parse"
	StageCoerce  Stage = "coerce"
	StagePanic   Stage = "panic"
	StageUnknown Stage = "unknown"
)

// ExtractionError is the terminal failure of a single image. It never aborts the batch.
type ExtractionError struct {
	Filename string
	Stage    Stage
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Filename, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable schema problem that was corrected in place.
type Warning struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] invalid category %q for %q, using default", w.Filename, w.Category, w.Description)
}

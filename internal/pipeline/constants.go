package pipeline

import "time"

// Defaults for receipt extraction. Overridden through config.
const (
	// DefaultModelName is the default Gemini model used for receipt extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultInferenceTimeout bounds a single model call.
	DefaultInferenceTimeout = 4 * time.Minute

	// DefaultConcurrency keeps extraction strictly sequential.
	DefaultConcurrency = 1

	// MaxConcurrency caps the extraction worker pool.
	MaxConcurrency = 8

	// TimestampLayout formats the "Timestamp Added" column.
	TimestampLayout = "2006-01-02 15:04:05"
)

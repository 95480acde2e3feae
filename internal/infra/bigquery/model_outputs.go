package bigquery

import "cloud.google.com/go/bigquery"

// Model output statuses.
const (
	ModelOutputStatusOK     = "OK"
	ModelOutputStatusFailed = "FAILED"
)

// ModelOutputRow is one raw model response kept for auditing extractions.
type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	BatchID  string `bigquery:"batch_id"`  // REQUIRED
	Filename string `bigquery:"filename"`  // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	RawText   string `bigquery:"raw_text"`   // REQUIRED

	Status       string              `bigquery:"status"`        // OK | FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	PromptTokens    bigquery.NullInt64 `bigquery:"prompt_tokens"`    // NULLABLE
	CandidateTokens bigquery.NullInt64 `bigquery:"candidate_tokens"` // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // REQUIRED
}

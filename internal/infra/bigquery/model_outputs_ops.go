package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const modelOutputsTable = "model_outputs"

// ModelOutputRepository stores raw model responses in <project>.<dataset>.model_outputs.
// It holds a shared client; call Close when done.
type ModelOutputRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewModelOutputRepository opens a BigQuery client for projectID.
func NewModelOutputRepository(ctx context.Context, projectID, datasetID string) (*ModelOutputRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewModelOutputRepository: creating client: %w", err)
	}
	return &ModelOutputRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *ModelOutputRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureTable creates the model_outputs table when it does not exist yet.
func (r *ModelOutputRepository) EnsureTable(ctx context.Context) error {
	table := r.client.Dataset(r.datasetID).Table(modelOutputsTable)
	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(ModelOutputRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "created_ts",
		},
	}
	if err := table.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// RecordModelOutput inserts a single ModelOutputRow. Uses DML INSERT to avoid
// streaming buffer issues on later reads.
func (r *ModelOutputRepository) RecordModelOutput(ctx context.Context, row *ModelOutputRow) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.%s`"+` (
			output_id, batch_id, filename,
			model_name, raw_text, status, error_message,
			prompt_tokens, candidate_tokens, created_ts
		)
		VALUES (
			@output_id, @batch_id, @filename,
			@model_name, @raw_text, @status, @error_message,
			@prompt_tokens, @candidate_tokens, @created_ts
		)
	`, r.projectID, r.datasetID, modelOutputsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "batch_id", Value: row.BatchID},
		{Name: "filename", Value: row.Filename},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "status", Value: row.Status},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "prompt_tokens", Value: row.PromptTokens},
		{Name: "candidate_tokens", Value: row.CandidateTokens},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("RecordModelOutput: running insert query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("RecordModelOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("RecordModelOutput: job error: %w", err)
	}
	return nil
}

// ListModelOutputs returns the model outputs recorded for batchID, oldest first.
func (r *ModelOutputRepository) ListModelOutputs(ctx context.Context, batchID string) ([]*ModelOutputRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			output_id,
			batch_id,
			filename,
			model_name,
			raw_text,
			status,
			error_message,
			prompt_tokens,
			candidate_tokens,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE batch_id = @batch_id
		ORDER BY created_ts
	`, r.projectID, r.datasetID, modelOutputsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "batch_id", Value: batchID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListModelOutputs: reading query: %w", err)
	}

	var rows []*ModelOutputRow
	for {
		var row ModelOutputRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListModelOutputs: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

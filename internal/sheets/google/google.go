package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/dvloznov/receipt-ledger/internal/sheets"
)

// Worksheet is a Sheets v4 backed worksheet tab.
type Worksheet struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Worksheet = (*Worksheet)(nil)

// New creates a Sheets client authenticated with a service account JSON key.
// Extra options are appended after the credentials, e.g. a custom endpoint.
func New(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Worksheet, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing worksheet name")
	}

	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Worksheet {
	return &Worksheet{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// quotedName returns the sheet name in A1 notation, e.g. 'Ausgaben'.
func (w *Worksheet) quotedName() string {
	return "'" + strings.ReplaceAll(w.sheetName, "'", "''") + "'"
}

// CheckAccess verifies that the spreadsheet is reachable with the configured
// credentials and that the worksheet tab exists.
func (w *Worksheet) CheckAccess(ctx context.Context) error {
	if _, err := w.sheetID(ctx); err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	return nil
}

func (w *Worksheet) sheetID(ctx context.Context) (int64, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == w.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", w.sheetName, ports.ErrWorksheetNotFound)
}

func (w *Worksheet) ReadHeader(ctx context.Context) ([]string, error) {
	rng := w.quotedName() + "!1:1"
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", mapError(err))
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

func (w *Worksheet) InsertHeader(ctx context.Context, header []string) error {
	id, err := w.sheetID(ctx)
	if err != nil {
		return fmt.Errorf("insert header: %w", err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			InsertDimension: &gsheet.InsertDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: 0,
					EndIndex:   1,
				},
			},
		}},
	}
	if _, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert header row: %w", mapError(err))
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{cells}}
	if _, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, w.quotedName()+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("write header: %w", mapError(err))
	}
	return nil
}

func (w *Worksheet) AppendRows(ctx context.Context, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = r
	}
	vr := &gsheet.ValueRange{Values: values}
	resp, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, w.quotedName()+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append rows: %w", mapError(err))
	}
	if resp.Updates != nil && resp.Updates.UpdatedRows > 0 {
		return int(resp.Updates.UpdatedRows), nil
	}
	return len(rows), nil
}

func (w *Worksheet) ReadAll(ctx context.Context) ([][]any, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.quotedName()).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", mapError(err))
	}
	out := make([][]any, len(resp.Values))
	for i, r := range resp.Values {
		out[i] = r
	}
	return out, nil
}

// mapError converts "sheet is empty" API failures into ErrRangeUnavailable.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := strings.ToLower(apiErr.Message)
	if strings.Contains(msg, "exceeds grid limits") || strings.Contains(msg, "unable to parse range") {
		return fmt.Errorf("%w: %s", ports.ErrRangeUnavailable, apiErr.Message)
	}
	return err
}

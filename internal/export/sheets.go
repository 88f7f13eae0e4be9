package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAPI is the subset of the Sheets API the exporter needs.
type SheetsAPI interface {
	TabTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddTab(ctx context.Context, spreadsheetID, title string) error
	ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	WriteRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	AppendRows(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

// SheetsExporter appends run records to a Google Sheets tab.
type SheetsExporter struct {
	api           SheetsAPI
	spreadsheetID string
	tab           string
	logger        *slog.Logger
}

func NewSheetsExporter(api SheetsAPI, spreadsheetID, tab string, logger *slog.Logger) *SheetsExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if tab == "" {
		tab = "monitoring_raw"
	}
	return &SheetsExporter{
		api:           api,
		spreadsheetID: spreadsheetID,
		tab:           tab,
		logger:        logger.With("component", "sheets"),
	}
}

func (e *SheetsExporter) Name() string { return "sheets" }

// Export makes sure the tab and header exist, then appends one row per record.
func (e *SheetsExporter) Export(ctx context.Context, run model.RunSummary, records []model.SheetRecord) error {
	if e.spreadsheetID == "" {
		return errors.New("spreadsheet id is required")
	}
	if len(records) == 0 {
		return nil
	}
	if err := e.ensureTabAndHeader(ctx); err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(records))
	for _, r := range records {
		values = append(values, sheetRow(r))
	}
	if err := e.api.AppendRows(ctx, e.spreadsheetID, e.tab+"!A:N", values); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	e.logger.Info("rows appended", "run_id", run.RunID, "rows", len(values), "tab", e.tab)
	return nil
}

func (e *SheetsExporter) ensureTabAndHeader(ctx context.Context) error {
	titles, err := e.api.TabTitles(ctx, e.spreadsheetID)
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	exists := false
	for _, t := range titles {
		if t == e.tab {
			exists = true
			break
		}
	}
	if !exists {
		if err := e.api.AddTab(ctx, e.spreadsheetID, e.tab); err != nil {
			return fmt.Errorf("add tab %s: %w", e.tab, err)
		}
	}

	header, err := e.api.ReadRange(ctx, e.spreadsheetID, e.tab+"!1:1")
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		return nil
	}
	row := make([]interface{}, len(model.SheetColumns))
	for i, c := range model.SheetColumns {
		row[i] = c
	}
	if err := e.api.WriteRange(ctx, e.spreadsheetID, e.tab+"!A1:N1", [][]interface{}{row}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// sheetRow keeps numeric cells numeric so the sheet can aggregate them.
func sheetRow(r model.SheetRecord) []interface{} {
	return []interface{}{
		r.RunID,
		r.RunTsUTC,
		r.RunTsLocal,
		r.HotelID,
		r.HotelName,
		string(r.Provider),
		r.TargetDate,
		r.AvailableRoomsCount,
		r.TotalRooms,
		r.OccupancyRatio,
		r.AvailableRoomIDsOrCategories,
		string(r.Status),
		r.ErrorCode,
		r.ErrorMessage,
	}
}

// SheetsClient implements SheetsAPI over the Google Sheets v4 service.
type SheetsClient struct {
	srv *sheets.Service
}

// NewSheetsClient authenticates with a service account JSON key.
func NewSheetsClient(ctx context.Context, credentialsJSON []byte) (*SheetsClient, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}
	return &SheetsClient{srv: srv}, nil
}

func (c *SheetsClient) TabTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	meta, err := c.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (c *SheetsClient) AddTab(ctx context.Context, spreadsheetID, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}
	_, err := c.srv.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (c *SheetsClient) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *SheetsClient) WriteRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := c.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (c *SheetsClient) AppendRows(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := c.srv.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

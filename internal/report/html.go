package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// DefaultPath is where the latest report is written when no path is configured.
const DefaultPath = "output/latest-report.html"

// HTMLReporter renders a run as a standalone HTML page.
type HTMLReporter struct {
	Path string
}

func NewHTMLReporter(path string) *HTMLReporter {
	if path == "" {
		path = DefaultPath
	}
	return &HTMLReporter{Path: path}
}

// Render writes the report to r.Path, replacing the previous one, and
// returns the path.
func (r *HTMLReporter) Render(records []model.SheetRecord, runID string) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, records, runID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(r.Path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return r.Path, nil
}

type hotelSection struct {
	HotelID        string
	HotelName      string
	Provider       string
	OK             int
	NoAvailability int
	Errors         int
	Rows           []reportRow
}

type reportRow struct {
	TargetDate string
	Status     string
	Available  string
	Total      string
	Ratio      string
	Rooms      string
	IsError    bool
	ErrorCode  string
	ErrorMsg   string
}

type reportPage struct {
	RunID    string
	RowCount int
	Hotels   []hotelSection
}

// Write renders the report for records into w.
func Write(w io.Writer, records []model.SheetRecord, runID string) error {
	page := reportPage{RunID: runID, RowCount: len(records), Hotels: buildSections(records)}
	if err := reportTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func buildSections(records []model.SheetRecord) []hotelSection {
	byHotel := make(map[string][]model.SheetRecord)
	var keys []string
	for _, rec := range records {
		key := rec.HotelID + "::" + rec.HotelName
		if _, ok := byHotel[key]; !ok {
			keys = append(keys, key)
		}
		byHotel[key] = append(byHotel[key], rec)
	}
	sort.Strings(keys)

	sections := make([]hotelSection, 0, len(keys))
	for _, key := range keys {
		rows := byHotel[key]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].TargetDate < rows[j].TargetDate })

		first := rows[0]
		section := hotelSection{
			HotelID:   first.HotelID,
			HotelName: first.HotelName,
			Provider:  string(first.Provider),
		}
		for _, rec := range rows {
			switch rec.Status {
			case model.StatusOK:
				section.OK++
			case model.StatusNoAvailability:
				section.NoAvailability++
			case model.StatusError:
				section.Errors++
			}
			section.Rows = append(section.Rows, newRow(rec))
		}
		sections = append(sections, section)
	}
	return sections
}

func newRow(rec model.SheetRecord) reportRow {
	row := reportRow{
		TargetDate: rec.TargetDate,
		Status:     string(rec.Status),
		Rooms:      rec.AvailableRoomIDsOrCategories,
		IsError:    rec.Status == model.StatusError,
	}
	if row.IsError {
		row.ErrorCode = rec.ErrorCode
		if row.ErrorCode == "" {
			row.ErrorCode = "error"
		}
		row.ErrorMsg = rec.ErrorMessage
		return row
	}
	row.Available = strconv.Itoa(rec.AvailableRoomsCount)
	row.Total = strconv.Itoa(rec.TotalRooms)
	row.Ratio = strconv.FormatFloat(rec.OccupancyRatio, 'f', -1, 64)
	return row
}

var reportTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="fr">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Hotel Monitoring Report - {{.RunID}}</title>
  <style>
    body { font-family: "IBM Plex Sans", "Segoe UI", sans-serif; margin: 20px; background: #f6f8fb; color: #1f2937; }
    h1 { margin: 0 0 6px 0; }
    h2 { margin: 0; font-size: 18px; }
    .meta { margin-bottom: 18px; color: #374151; }
    .hotel { margin: 14px 0 22px; }
    .hotel-h { display: flex; gap: 12px; justify-content: space-between; align-items: flex-start; margin-bottom: 10px; }
    .sub { color: #4b5563; font-size: 12px; margin-top: 4px; }
    .stats { display: flex; gap: 8px; flex-wrap: wrap; justify-content: flex-end; }
    .wrap { overflow: auto; border: 1px solid #d1d5db; background: #fff; border-radius: 12px; }
    table { width: 100%; border-collapse: collapse; min-width: 900px; }
    th, td { border-bottom: 1px solid #e5e7eb; padding: 8px 10px; text-align: left; vertical-align: top; font-size: 13px; }
    thead th { position: sticky; top: 0; background: #eaf1ff; }
    tr.s-error td { background: #fff5f5; }
    tr.s-ok td { background: #f6fffb; }
    .badge { display: inline-block; border-radius: 999px; padding: 3px 8px; font-size: 12px; border: 1px solid #d1d5db; background: #fff; }
    .b-ok { border-color: #86efac; background: #dcfce7; }
    .b-no_availability { background: #f3f4f6; }
    .b-error { border-color: #fecaca; background: #fee2e2; }
    .mono { font-family: ui-monospace, Menlo, Consolas, monospace; }
    .na { color: #6b7280; }
    details.err summary { cursor: pointer; color: #991b1b; }
    details.err pre { margin: 8px 0 0; white-space: pre-wrap; font-size: 12px; border: 1px solid #fecaca; border-radius: 10px; padding: 8px; }
  </style>
</head>
<body>
  <h1>Hotel Monitoring Report</h1>
  <div class="meta">run_id: <code>{{.RunID}}</code> | rows: <strong>{{.RowCount}}</strong></div>
{{- range .Hotels}}
  <section class="hotel">
    <header class="hotel-h">
      <div>
        <h2>{{.HotelName}}</h2>
        <div class="sub">hotel_id: <code>{{.HotelID}}</code> | provider: <code>{{.Provider}}</code></div>
      </div>
      <div class="stats">
        <span class="badge b-ok">ok: {{.OK}}</span>
        <span class="badge b-no_availability">no_availability: {{.NoAvailability}}</span>
        <span class="badge b-error">error: {{.Errors}}</span>
      </div>
    </header>
    <div class="wrap">
      <table>
        <thead>
          <tr><th>target_date</th><th>available</th><th>total</th><th>ratio</th><th>ids/categories</th><th>status</th><th>error</th></tr>
        </thead>
        <tbody>
{{- range .Rows}}
          <tr class="s-{{.Status}}">
            <td class="mono">{{.TargetDate}}</td>
{{- if .IsError}}
            <td><span class="na">N/A</span></td>
            <td><span class="na">N/A</span></td>
            <td><span class="na">N/A</span></td>
{{- else}}
            <td>{{.Available}}</td>
            <td>{{.Total}}</td>
            <td>{{.Ratio}}</td>
{{- end}}
            <td class="mono">{{.Rooms}}</td>
            <td><span class="badge b-{{.Status}}">{{.Status}}</span></td>
            <td>{{if .IsError}}<details class="err"><summary>{{.ErrorCode}}</summary><pre>{{.ErrorMsg}}</pre></details>{{end}}</td>
          </tr>
{{- end}}
        </tbody>
      </table>
    </div>
  </section>
{{- end}}
</body>
</html>
`))

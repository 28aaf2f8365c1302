// Package ingest recovers typed birth records from real-world spreadsheet
// exports. Workbooks arrive with unreliable shape: headers present or
// absent, worded a dozen ways, columns reordered, cells mistyped. The
// engine runs each worksheet through four stages - sheet acquisition,
// header resolution, column normalization, record cleaning - and returns
// every record it could recover plus diagnostics for everything it could
// not.
//
// The engine is synchronous and stateless across invocations: one workbook
// in, one Result out. Per-sheet and per-row problems never abort the
// workbook; only an unreadable file or a completely empty harvest is an
// error.
package ingest

import (
	"errors"

	"github.com/xuri/excelize/v2"
)

// ErrNoRecords is returned when the workbook opened fine but no sheet
// yielded a single usable record. The Result is still returned alongside
// it so callers can surface the accumulated diagnostics.
var ErrNoRecords = errors.New("no valid records found in workbook")

// DeliveryPolicy selects what happens to unrecognized mode-of-delivery
// values.
type DeliveryPolicy int

const (
	// DeliveryNull clears unrecognized values and records a diagnostic.
	// Default: clinical data should not be guessed.
	DeliveryNull DeliveryPolicy = iota
	// DeliveryPassThrough keeps the value as typed (title-cased).
	DeliveryPassThrough
	// DeliveryNormal coerces unrecognized values to "Normal", matching
	// the legacy import behavior.
	DeliveryNormal
)

// Policy holds the cleaning decisions that vary by deployment.
type Policy struct {
	// GenderFallbackOther maps unrecognized gender values to "Other"
	// instead of clearing them.
	GenderFallbackOther bool

	// DeliveryFallback controls unrecognized delivery modes.
	DeliveryFallback DeliveryPolicy

	// FallbackYear is assumed for day-month dates with no year ("12-Jul").
	// Always flagged with a diagnostic; wrong for multi-year imports.
	FallbackYear int
}

// DefaultPolicy returns the recommended cleaning policy.
func DefaultPolicy() Policy {
	return Policy{FallbackYear: 2025}
}

// SheetSummary describes what happened to one worksheet.
type SheetSummary struct {
	Name    string `json:"name"`
	Method  string `json:"method,omitempty"` // header resolution strategy, "" if the sheet was skipped
	Rows    int    `json:"rows"`             // data rows considered
	Records int    `json:"records"`          // records emitted
}

// Result is the full outcome of parsing one workbook: every recovered
// record in sheet-then-row order, plus the diagnostics and per-sheet
// summaries accumulated along the way.
type Result struct {
	Records     []Record       `json:"records"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
	Sheets      []SheetSummary `json:"sheets"`
}

// Parse extracts birth records from raw workbook bytes.
//
// It fails in exactly two cases: the bytes are not a readable workbook, or
// every sheet came up empty (ErrNoRecords, returned together with the
// Result so diagnostics survive). Everything else - unresolvable headers,
// unusable columns, rows that fail the completeness gate - degrades to
// diagnostics on the Result.
func Parse(data []byte, policy Policy) (*Result, error) {
	f, err := openWorkbook(data)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := &Result{}
	c := &collector{}

	for _, sheet := range f.GetSheetList() {
		summary := processSheet(f, sheet, policy, result, c)
		result.Sheets = append(result.Sheets, summary)
	}

	result.Diagnostics = c.diags

	if len(result.Records) == 0 {
		return result, ErrNoRecords
	}
	return result, nil
}

// processSheet runs one worksheet through the pipeline. A panic inside
// sheet processing is converted to a diagnostic so a malformed sheet
// cannot take down the rest of the workbook.
func processSheet(f *excelize.File, sheet string, policy Policy, result *Result, c *collector) (summary SheetSummary) {
	summary = SheetSummary{Name: sheet}

	defer func() {
		if r := recover(); r != nil {
			c.sheetf(sheet, "sheet skipped after internal error: %v", r)
		}
	}()

	grid, err := sheetGrid(f, sheet)
	if err != nil {
		c.sheetf(sheet, "unreadable: %v", err)
		return summary
	}
	if len(grid) == 0 {
		c.sheetf(sheet, "empty sheet")
		return summary
	}

	dec, ok := resolveHeader(grid)
	if !ok {
		c.sheetf(sheet, "no header row found and data shape not recognized")
		return summary
	}
	summary.Method = dec.method

	fr, ok := normalizeColumns(sheet, dec, grid, c)
	if !ok {
		return summary
	}
	summary.Rows = len(fr.rows)

	for i := range fr.rows {
		rec, ok := cleanRow(fr.values(i), sheet, dec.dataStart+i, policy, c)
		if !ok {
			continue
		}
		result.Records = append(result.Records, rec)
		summary.Records++
	}

	return summary
}

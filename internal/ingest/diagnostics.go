package ingest

import "fmt"

// Diagnostic is a non-fatal note about a skipped or corrected sheet, row,
// or field. Diagnostics accumulate on the Result instead of being logged,
// so the caller decides how to surface them (API response, log, preview UI).
type Diagnostic struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`   // zero-based row within the sheet, -1 for sheet-level
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	switch {
	case d.Row < 0:
		return fmt.Sprintf("sheet %q: %s", d.Sheet, d.Reason)
	case d.Field != "":
		return fmt.Sprintf("sheet %q row %d (%s): %s", d.Sheet, d.Row, d.Field, d.Reason)
	default:
		return fmt.Sprintf("sheet %q row %d: %s", d.Sheet, d.Row, d.Reason)
	}
}

// collector accumulates diagnostics during one Parse invocation.
// It is local to the invocation; the engine holds no state between calls.
type collector struct {
	diags []Diagnostic
}

func (c *collector) sheetf(sheet, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Sheet: sheet, Row: -1, Reason: fmt.Sprintf(format, args...)})
}

func (c *collector) rowf(sheet string, row int, field, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Sheet: sheet, Row: row, Field: field, Reason: fmt.Sprintf(format, args...)})
}

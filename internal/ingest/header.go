package ingest

// header.go decides, for one raw cell grid, which row (if any) names the
// columns. Real exports are wildly inconsistent: some sheets have a clean
// header in row 0, some bury it under title rows, and some have no header
// at all. The decision is an ordered list of strategies, first success
// wins, each independently testable.

import (
	"strconv"
	"strings"
)

// Parsing method names, recorded on the sheet summary so callers (and
// tests) can see which strategy matched.
const (
	methodHeaderRow0   = "header_row_0"
	methodHeaderless   = "headerless_data"
	methodHeaderScan   = "header_scan_row_" // + row index
	methodAssumedOrder = "assumed_order"
	methodAltHeaderRow = "header_row_" // + row index
)

// headerScanRows is how many leading rows are considered as header
// candidates before giving up on label-based strategies.
const headerScanRows = 5

// headerDecision is the outcome of header resolution for one sheet.
type headerDecision struct {
	method    string
	labels    []string // raw column labels; synthetic for headerless sheets
	dataStart int      // index of the first data row in the grid
}

// cellKind is a coarse classification of a cell's content, used both for
// header detection and for content sniffing.
type cellKind int

const (
	kindEmpty cellKind = iota
	kindNumeric
	kindDate
	kindText
)

func classifyCell(s string) cellKind {
	s = strings.TrimSpace(s)
	if s == "" {
		return kindEmpty
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return kindNumeric
	}
	if _, _, ok := parseDate(s, 2000); ok {
		return kindDate
	}
	return kindText
}

// kindCounts tallies cell kinds for one row.
type kindCounts struct {
	empty, numeric, date, text int
}

func countKinds(row []string) kindCounts {
	var kc kindCounts
	for _, cell := range row {
		switch classifyCell(cell) {
		case kindEmpty:
			kc.empty++
		case kindNumeric:
			kc.numeric++
		case kindDate:
			kc.date++
		default:
			kc.text++
		}
	}
	return kc
}

// placeholderLabels are auto-generated column names that carry no meaning
// (pandas writes "Unnamed: 3", other tools write "Column1" or "Field2").
func isPlaceholderLabel(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "unnamed") ||
		strings.HasPrefix(l, "column") ||
		strings.HasPrefix(l, "field")
}

// meaningfulHeaders reports whether a row reads like column labels:
// at least 3 cells of non-placeholder text longer than 2 characters,
// no date-valued cells, and at most one numeric cell. Rows full of dates
// or numbers are data, not labels.
func meaningfulHeaders(row []string) bool {
	meaningful := 0
	numeric := 0
	for _, cell := range row {
		switch classifyCell(cell) {
		case kindDate:
			return false
		case kindNumeric:
			numeric++
		case kindText:
			if len(strings.TrimSpace(cell)) > 2 && !isPlaceholderLabel(cell) {
				meaningful++
			}
		}
	}
	return meaningful >= 3 && numeric <= 1
}

// looksLikeDataRow reports whether a row has the type signature of record
// data rather than labels: two or more date cells plus a numeric cell.
func looksLikeDataRow(row []string) bool {
	kc := countKinds(row)
	return kc.date >= 2 && kc.numeric >= 1
}

// syntheticLabels returns the canonical field order padded with synthetic
// names for any trailing extra columns.
func syntheticLabels(width int) []string {
	labels := make([]string, width)
	for i := range labels {
		if i < NumFields {
			labels[i] = canonicalOrder[i]
		} else {
			labels[i] = "extra_" + strconv.Itoa(i-NumFields+1)
		}
	}
	return labels
}

func gridWidth(grid [][]string) int {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

func nonEmptyCells(row []string) int {
	n := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}

// resolveHeader runs the ordered strategy list over a raw grid. It returns
// false when no strategy succeeds, in which case the sheet is skipped.
//
// Order of attempts:
//  1. row 0 as header, if its labels are meaningful
//  2. headerless-data detection on row 0's cell types
//  3. scan rows 0-4 for a row with a header-like type signature
//  4. assumed canonical order for wide grids
//  5. rows 1-3 as header, same test as (1)
func resolveHeader(grid [][]string) (headerDecision, bool) {
	if len(grid) == 0 {
		return headerDecision{}, false
	}

	// (a) Row 0 as header.
	if meaningfulHeaders(grid[0]) {
		return headerDecision{method: methodHeaderRow0, labels: grid[0], dataStart: 1}, true
	}

	// (b) Headerless data: row 0 already carries record-shaped values.
	if looksLikeDataRow(grid[0]) {
		return headerDecision{
			method:    methodHeaderless,
			labels:    syntheticLabels(gridWidth(grid)),
			dataStart: 0,
		}, true
	}

	// (c) Scan the leading rows for a header-like type signature.
	scan := headerScanRows
	if len(grid) < scan {
		scan = len(grid)
	}
	for i := 0; i < scan; i++ {
		kc := countKinds(grid[i])
		if kc.text >= 4 && kc.date <= 1 && kc.numeric <= 2 {
			return headerDecision{
				method:    methodHeaderScan + strconv.Itoa(i),
				labels:    grid[i],
				dataStart: i + 1,
			}, true
		}
	}

	// (d) Wide grid with no recognizable header: assume canonical order
	// starting from the first row that is mostly populated.
	if width := gridWidth(grid); width >= 8 {
		for i, row := range grid {
			if nonEmptyCells(row) >= 5 {
				return headerDecision{
					method:    methodAssumedOrder,
					labels:    syntheticLabels(width),
					dataStart: i,
				}, true
			}
		}
	}

	// (e) Retry the row-0 test on rows 1-3.
	for i := 1; i < 4 && i < len(grid); i++ {
		if meaningfulHeaders(grid[i]) {
			return headerDecision{
				method:    methodAltHeaderRow + strconv.Itoa(i),
				labels:    grid[i],
				dataStart: i + 1,
			}, true
		}
	}

	return headerDecision{}, false
}

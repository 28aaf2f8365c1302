package ingest

// columns.go maps whatever column labels header resolution produced onto
// the canonical 11-field schema. Three tiers of evidence, strongest first:
//
//	synonym table  -> exact match on the normalized label
//	position       -> canonical order, when the sheet is wide enough and
//	                  labels could not fill the required fields
//	content sniff  -> guess a column's role from up to 3 sample values
//
// Each tier is consulted only when the previous one left required fields
// unfilled, because each is strictly weaker evidence than the last.

import (
	"regexp"
	"strings"
)

// sniffSampleSize is how many non-empty values are inspected per unmapped
// column during content sniffing.
const sniffSampleSize = 3

// headerSynonyms maps normalized label spellings to canonical fields.
// Keys must be in normalizeLabel form (lowercase, underscores, no quotes
// or periods). Many-to-one: every observed spelling of a header belongs
// here, not in ad hoc branching.
var headerSynonyms = map[string]string{
	"date":              FieldRecordDate,
	"record_date":       FieldRecordDate,
	"reg_date":          FieldRecordDate,
	"registration_date": FieldRecordDate,

	"ip_no":        FieldIPNumber,
	"ipno":         FieldIPNumber,
	"ip_number":    FieldIPNumber,
	"ip_num":       FieldIPNumber,
	"inpatient_no": FieldIPNumber,

	"mother_name":    FieldMotherName,
	"mothers_name":   FieldMotherName,
	"name_of_mother": FieldMotherName,
	"mother":         FieldMotherName,

	"date_of_admission": FieldAdmissionDate,
	"admission_date":    FieldAdmissionDate,
	"admitted_on":       FieldAdmissionDate,
	"doa":               FieldAdmissionDate,

	"date_of_discharge": FieldDischargeDate,
	"discharge_date":    FieldDischargeDate,
	"discharged_on":     FieldDischargeDate,

	"date_of_birth": FieldDateOfBirth,
	"birth_date":    FieldDateOfBirth,
	"dob":           FieldDateOfBirth,

	"gender": FieldGender,
	"sex":    FieldGender,

	"mode_of_delivery": FieldModeOfDelivery,
	"delivery_mode":    FieldModeOfDelivery,
	"type_of_delivery": FieldModeOfDelivery,
	"delivery":         FieldModeOfDelivery,
	"mod":              FieldModeOfDelivery,

	"child_name":    FieldChildName,
	"childs_name":   FieldChildName,
	"name_of_child": FieldChildName,
	"baby_name":     FieldChildName,
	"babys_name":    FieldChildName,
	"name_of_baby":  FieldChildName,

	"father_name":    FieldFatherName,
	"fathers_name":   FieldFatherName,
	"name_of_father": FieldFatherName,
	"father":         FieldFatherName,

	"birth_notification_no":     FieldBirthNotificationNo,
	"birth_notification_number": FieldBirthNotificationNo,
	"birth_notification":        FieldBirthNotificationNo,
	"notification_no":           FieldBirthNotificationNo,
	"notification_number":       FieldBirthNotificationNo,
	"bnn":                       FieldBirthNotificationNo,
}

// requiredFields must all be mapped for a frame to be usable without
// falling back to weaker mapping tiers.
var requiredFields = []string{
	FieldIPNumber,
	FieldMotherName,
	FieldChildName,
	FieldBirthNotificationNo,
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeLabel canonicalizes a column label: trim, lowercase, strip
// quote characters and periods, collapse space runs to underscores.
// "IP. NO" and "ip_no." both become "ip_no".
func normalizeLabel(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.NewReplacer(`"`, "", "'", "", "`", "", ".", "").Replace(s)
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "_")
	return s
}

// frame is the intermediate tabular shape between header resolution and
// row cleaning: data rows plus a canonical field assignment per column
// ("" for columns that stay unmapped).
type frame struct {
	sheet  string
	method string
	fields []string
	rows   [][]string
}

// cell returns the trimmed value at (row, col), tolerating ragged rows.
func (f *frame) cell(row, col int) string {
	if col >= len(f.rows[row]) {
		return ""
	}
	return strings.TrimSpace(f.rows[row][col])
}

// values builds the canonical rowValues for one data row. When two columns
// map to the same field the first non-empty value wins.
func (f *frame) values(row int) rowValues {
	var rv rowValues
	seen := make(map[string]bool, len(f.fields))
	for col, field := range f.fields {
		if field == "" {
			continue
		}
		if seen[field] {
			continue
		}
		if v := f.cell(row, col); v != "" {
			rv.set(field, v)
			seen[field] = true
		}
	}
	return rv
}

// hasRequired reports whether every required field is assigned a column.
func hasRequired(fields []string) bool {
	assigned := make(map[string]bool, len(fields))
	for _, f := range fields {
		assigned[f] = true
	}
	for _, req := range requiredFields {
		if !assigned[req] {
			return false
		}
	}
	return true
}

// meaninglessLabels reports whether the labels as a whole carry no usable
// information (numeric, date-like, or placeholder), which happens when a
// data row or a timestamp banner was mistaken for a header.
func meaninglessLabels(labels []string) bool {
	meaningful := 0
	for _, l := range labels {
		if strings.TrimSpace(l) == "" || isPlaceholderLabel(l) {
			continue
		}
		if classifyCell(l) == kindText {
			meaningful++
		}
	}
	return meaningful < len(requiredFields)
}

// normalizeColumns maps a header decision onto the canonical schema and
// returns the resulting frame. It returns false, with a diagnostic, when
// the sheet has no usable columns.
func normalizeColumns(sheet string, dec headerDecision, grid [][]string, c *collector) (*frame, bool) {
	fields := make([]string, len(dec.labels))

	// Tier 1: synonym table on normalized labels.
	for i, label := range dec.labels {
		key := normalizeLabel(label)
		if canonical, ok := headerSynonyms[key]; ok {
			fields[i] = canonical
		} else if isCanonicalField(key) {
			fields[i] = key
		}
	}

	// Tier 2: positional mapping, when labels failed to fill the required
	// fields (or were never meaningful) and the sheet is wide enough to
	// hold the canonical order.
	if (!hasRequired(fields) || meaninglessLabels(dec.labels)) && len(dec.labels) >= NumFields {
		for i := 0; i < NumFields; i++ {
			fields[i] = canonicalOrder[i]
		}
		for i := NumFields; i < len(fields); i++ {
			fields[i] = ""
		}
	}

	rows := grid[dec.dataStart:]

	// Tier 3: content sniffing for columns that are still unmapped.
	sniffColumns(fields, rows)

	if !anyMapped(fields) {
		c.sheetf(sheet, "no usable columns (labels: %s)", strings.Join(dec.labels, ", "))
		return nil, false
	}

	// Drop fully-empty rows up front so row indices in diagnostics refer
	// to rows that actually held content.
	var kept [][]string
	for _, row := range rows {
		if nonEmptyCells(row) > 0 {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		c.sheetf(sheet, "no data rows")
		return nil, false
	}

	return &frame{sheet: sheet, method: dec.method, fields: fields, rows: kept}, true
}

func isCanonicalField(s string) bool {
	for _, f := range canonicalOrder {
		if s == f {
			return true
		}
	}
	return false
}

func anyMapped(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return true
		}
	}
	return false
}

// deliveryKeywords signal a mode-of-delivery column during sniffing.
var deliveryKeywords = []string{
	"caesarean", "cesarean", "section", "normal", "vacuum", "forceps",
	"breech", "delivery", "svd",
}

// genderValues are the cell values that identify a gender column.
var genderValues = map[string]bool{
	"male": true, "female": true, "m": true, "f": true, "other": true,
}

// sniffColumns assigns roles to unmapped columns by inspecting up to
// sniffSampleSize sample values each. Only fields that no column claimed
// yet are assigned, and name-like columns fill mother, child, then father
// in that priority order.
func sniffColumns(fields []string, rows [][]string) {
	taken := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			taken[f] = true
		}
	}

	claim := func(col int, field string) {
		if !taken[field] {
			fields[col] = field
			taken[field] = true
		}
	}

	for col, field := range fields {
		if field != "" {
			continue
		}
		samples := sampleColumn(rows, col, sniffSampleSize)
		if len(samples) == 0 {
			continue
		}

		switch {
		case allGenderValues(samples):
			claim(col, FieldGender)
		case anyDeliveryKeyword(samples):
			claim(col, FieldModeOfDelivery)
		case allMultiWord(samples):
			for _, nameField := range []string{FieldMotherName, FieldChildName, FieldFatherName} {
				if !taken[nameField] {
					claim(col, nameField)
					break
				}
			}
		case allLongDigits(samples):
			claim(col, FieldBirthNotificationNo)
		}
	}
}

// sampleColumn collects up to n non-empty values from a column.
func sampleColumn(rows [][]string, col, n int) []string {
	var samples []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			samples = append(samples, v)
			if len(samples) == n {
				break
			}
		}
	}
	return samples
}

func allGenderValues(samples []string) bool {
	for _, s := range samples {
		if !genderValues[strings.ToLower(s)] {
			return false
		}
	}
	return true
}

func anyDeliveryKeyword(samples []string) bool {
	for _, s := range samples {
		l := strings.ToLower(s)
		for _, kw := range deliveryKeywords {
			if strings.Contains(l, kw) {
				return true
			}
		}
	}
	return false
}

func allMultiWord(samples []string) bool {
	for _, s := range samples {
		if classifyCell(s) != kindText || len(strings.Fields(s)) < 2 {
			return false
		}
	}
	return true
}

func allLongDigits(samples []string) bool {
	for _, s := range samples {
		if len(s) < minNotificationLen {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

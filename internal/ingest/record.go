package ingest

// record.go defines the canonical 11-field schema and the per-row cleaning
// rules that turn raw cell text into a typed Record.
//
// Cleaning is deliberately forgiving: a field that fails to parse becomes
// null (with a diagnostic) rather than failing the row. Only the
// completeness gate drops rows, and only when the identifying fields are
// missing or too short to be real.

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical field names. Every parsed record conforms to this shape.
const (
	FieldRecordDate          = "record_date"
	FieldIPNumber            = "ip_number"
	FieldMotherName          = "mother_name"
	FieldAdmissionDate       = "admission_date"
	FieldDischargeDate       = "discharge_date"
	FieldDateOfBirth         = "date_of_birth"
	FieldGender              = "gender"
	FieldModeOfDelivery      = "mode_of_delivery"
	FieldChildName           = "child_name"
	FieldFatherName          = "father_name"
	FieldBirthNotificationNo = "birth_notification_no"
)

// canonicalOrder is the assumed column order for headerless sheets and for
// positional mapping. It matches the layout of the hospital register books
// the source spreadsheets are transcribed from.
var canonicalOrder = []string{
	FieldRecordDate,
	FieldIPNumber,
	FieldMotherName,
	FieldAdmissionDate,
	FieldDischargeDate,
	FieldDateOfBirth,
	FieldGender,
	FieldModeOfDelivery,
	FieldChildName,
	FieldFatherName,
	FieldBirthNotificationNo,
}

// NumFields is the canonical column count.
const NumFields = 11

// Minimum-length rules for the completeness gate.
const (
	minIdentifierLen   = 2
	minNotificationLen = 4
)

// Gender values after normalization.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Record is one cleaned, typed birth record. Optional fields are nil or
// empty; the completeness gate guarantees the four identifying string
// fields are present on every emitted record.
type Record struct {
	RecordDate          *time.Time `json:"record_date"`
	IPNumber            string     `json:"ip_number"`
	MotherName          string     `json:"mother_name"`
	AdmissionDate       *time.Time `json:"admission_date"`
	DischargeDate       *time.Time `json:"discharge_date"`
	DateOfBirth         *time.Time `json:"date_of_birth"`
	Gender              string     `json:"gender,omitempty"`
	ModeOfDelivery      string     `json:"mode_of_delivery,omitempty"`
	ChildName           string     `json:"child_name"`
	FatherName          string     `json:"father_name,omitempty"`
	BirthNotificationNo string     `json:"birth_notification_no"`
}

// rowValues holds the raw cell text for one candidate record, already
// keyed by canonical field. This is the shape boundary between column
// normalization and cleaning: from here on, lookups are struct fields,
// not label strings.
type rowValues struct {
	RecordDate          string
	IPNumber            string
	MotherName          string
	AdmissionDate       string
	DischargeDate       string
	DateOfBirth         string
	Gender              string
	ModeOfDelivery      string
	ChildName           string
	FatherName          string
	BirthNotificationNo string
}

func (rv *rowValues) set(field, value string) {
	switch field {
	case FieldRecordDate:
		rv.RecordDate = value
	case FieldIPNumber:
		rv.IPNumber = value
	case FieldMotherName:
		rv.MotherName = value
	case FieldAdmissionDate:
		rv.AdmissionDate = value
	case FieldDischargeDate:
		rv.DischargeDate = value
	case FieldDateOfBirth:
		rv.DateOfBirth = value
	case FieldGender:
		rv.Gender = value
	case FieldModeOfDelivery:
		rv.ModeOfDelivery = value
	case FieldChildName:
		rv.ChildName = value
	case FieldFatherName:
		rv.FatherName = value
	case FieldBirthNotificationNo:
		rv.BirthNotificationNo = value
	}
}

// Day-first date layouts. Four-digit years are tried before two-digit to
// avoid misreading "02/01/2019" as "02/01/20" plus garbage.
var (
	dayFirstLayouts = []string{
		"2/1/2006", "02/01/2006",
		"2-1-2006", "02-01-2006",
		"2.1.2006", "02.01.2006",
		"2006-01-02", "2006/01/02",
		"2 Jan 2006", "2-Jan-2006", "2 January 2006",
		"Jan 2, 2006",
	}
	dayFirstShortLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06",
	}
	// Year-less day-month forms seen in hand-typed registers ("12-Jul").
	// These take the policy's fallback year; the guess is flagged with a
	// diagnostic because it is wrong for multi-year imports.
	dayMonthLayouts = []string{
		"2-Jan", "2 Jan", "2-January", "2 January",
	}
)

// twoDigitYearPivot controls how 2-digit years are read: years that would
// land more than this many years in the future belong to the previous
// century.
const twoDigitYearPivot = 20

// parseDate parses a cell as a day-first date. The second return reports
// whether the ambiguous year-less short form was used.
func parseDate(s string, fallbackYear int) (t time.Time, shortForm, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, true
		}
	}

	pivot := time.Now().Year() + twoDigitYearPivot
	for _, layout := range dayFirstShortLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, false, true
		}
	}

	for _, layout := range dayMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(fallbackYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true, true
		}
	}

	return time.Time{}, false, false
}

// nullMarkers are cell values that mean "no value" in hand-maintained
// exports. Compared lowercased.
var nullMarkers = map[string]bool{
	"": true, "-": true, "--": true, "n/a": true, "na": true,
	"nil": true, "null": true, "none": true, "nan": true, "nat": true,
}

// cleanNull trims a cell and maps null markers to the empty string.
func cleanNull(s string) string {
	s = strings.TrimSpace(s)
	if nullMarkers[strings.ToLower(s)] {
		return ""
	}
	return s
}

// titleCase trims and title-cases a name or vocabulary field.
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

// normalizeGender maps free-text gender to the controlled vocabulary.
// Unrecognized non-empty values fall back per policy: null by default,
// or "Other" when the policy opts in.
func normalizeGender(s string, p Policy) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "m", "male":
		return GenderMale
	case "f", "female":
		return GenderFemale
	case "other":
		return GenderOther
	default:
		if p.GenderFallbackOther {
			return GenderOther
		}
		return ""
	}
}

// deliveryModes maps lowercased spellings to the controlled vocabulary.
// Keys cover the abbreviations maternity clerks actually type.
var deliveryModes = map[string]string{
	"normal":                      "Normal",
	"normal delivery":             "Normal",
	"nvd":                         "Normal",
	"c-section":                   "C-Section",
	"c section":                   "C-Section",
	"c/s":                         "C-Section",
	"cs":                          "C-Section",
	"caesarean":                   "Caesarean Section",
	"caesarean section":           "Caesarean Section",
	"cesarean":                    "Caesarean Section",
	"cesarean section":            "Caesarean Section",
	"svd":                         "Spontaneous Vertex Delivery",
	"spontaneous vertex delivery": "Spontaneous Vertex Delivery",
	"vacuum":                      "Vacuum",
	"forceps":                     "Forceps",
	"breech":                      "Breech",
	"bba":                         "Born Before Arrival",
	"born before arrival":         "Born Before Arrival",
}

// normalizeDelivery maps free-text delivery mode to the controlled
// vocabulary. The handling of unrecognized values is a policy decision:
// clinical data should not silently become "Normal", so the default is
// null plus a diagnostic.
func normalizeDelivery(s string, p Policy) (mode string, recognized bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", true
	}
	if mode, ok := deliveryModes[key]; ok {
		return mode, true
	}
	switch p.DeliveryFallback {
	case DeliveryPassThrough:
		return titleCase(s), false
	case DeliveryNormal:
		return "Normal", false
	default:
		return "", false
	}
}

// fatherPlaceholders are values that mean "father not recorded".
var fatherPlaceholders = map[string]bool{
	"unknown": true, "not known": true, "absent": true, "n.k": true, "nk": true,
}

// cleanRow turns one row of raw cell text into a Record. It returns false
// when the row fails the completeness gate, after recording a diagnostic.
func cleanRow(rv rowValues, sheet string, row int, p Policy, c *collector) (Record, bool) {
	var rec Record

	parseDateField := func(field, raw string) *time.Time {
		raw = cleanNull(raw)
		if raw == "" {
			return nil
		}
		t, short, ok := parseDate(raw, p.FallbackYear)
		if !ok {
			c.rowf(sheet, row, field, "unparseable date %q", raw)
			return nil
		}
		if short {
			c.rowf(sheet, row, field, "date %q has no year, assumed %d", raw, p.FallbackYear)
		}
		return &t
	}

	rec.RecordDate = parseDateField(FieldRecordDate, rv.RecordDate)
	rec.AdmissionDate = parseDateField(FieldAdmissionDate, rv.AdmissionDate)
	rec.DischargeDate = parseDateField(FieldDischargeDate, rv.DischargeDate)
	rec.DateOfBirth = parseDateField(FieldDateOfBirth, rv.DateOfBirth)

	// Identifiers keep their case; only trim and null-normalize.
	rec.IPNumber = cleanNull(rv.IPNumber)
	rec.BirthNotificationNo = cleanNull(rv.BirthNotificationNo)

	rec.MotherName = titleCase(cleanNull(rv.MotherName))
	rec.ChildName = titleCase(cleanNull(rv.ChildName))

	father := titleCase(cleanNull(rv.FatherName))
	if len(father) < minIdentifierLen || fatherPlaceholders[strings.ToLower(father)] {
		father = ""
	}
	rec.FatherName = father

	gender := cleanNull(rv.Gender)
	rec.Gender = normalizeGender(gender, p)
	if gender != "" && rec.Gender == "" {
		c.rowf(sheet, row, FieldGender, "unrecognized gender %q", gender)
	}

	delivery := cleanNull(rv.ModeOfDelivery)
	mode, recognized := normalizeDelivery(delivery, p)
	rec.ModeOfDelivery = mode
	if !recognized {
		c.rowf(sheet, row, FieldModeOfDelivery, "unrecognized delivery mode %q", delivery)
	}

	// A record cannot be created before the birth it documents.
	if rec.RecordDate != nil && rec.DateOfBirth != nil && rec.RecordDate.Before(*rec.DateOfBirth) {
		c.rowf(sheet, row, FieldDateOfBirth, "date of birth %s is after record date %s, cleared",
			rec.DateOfBirth.Format("2006-01-02"), rec.RecordDate.Format("2006-01-02"))
		rec.DateOfBirth = nil
	}

	if missing := rec.missingRequired(); missing != "" {
		c.rowf(sheet, row, missing, "row dropped: missing or too short")
		return Record{}, false
	}

	return rec, true
}

// missingRequired returns the name of the first identifying field that
// fails the completeness gate, or "" if the record passes.
func (r Record) missingRequired() string {
	switch {
	case len(r.IPNumber) < minIdentifierLen:
		return FieldIPNumber
	case len(r.MotherName) < minIdentifierLen:
		return FieldMotherName
	case len(r.ChildName) < minIdentifierLen:
		return FieldChildName
	case len(r.BirthNotificationNo) < minNotificationLen:
		return FieldBirthNotificationNo
	}
	return ""
}

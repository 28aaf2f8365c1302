package ingest

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// parseDate Tests
// ============================================================================

func TestParseDate_DayFirst(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"08/01/2025", date(2025, time.January, 8)},
		{"8/1/2025", date(2025, time.January, 8)},
		{"08-01-2025", date(2025, time.January, 8)},
		{"2025-01-08", date(2025, time.January, 8)},
		{"8 Jan 2025", date(2025, time.January, 8)},
		{"8-Jan-2025", date(2025, time.January, 8)},
		{"31/12/2024", date(2024, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, short, ok := parseDate(tt.in, 2025)
			if !ok {
				t.Fatalf("parseDate(%q) failed", tt.in)
			}
			if short {
				t.Errorf("parseDate(%q) flagged as short form", tt.in)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate_YearlessShortForm(t *testing.T) {
	got, short, ok := parseDate("12-Jul", 2025)
	if !ok {
		t.Fatal("parseDate failed on year-less short form")
	}
	if !short {
		t.Error("short form not flagged")
	}
	if want := date(2025, time.July, 12); !got.Equal(want) {
		t.Errorf("parseDate = %v, want %v", got, want)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "99/99/2025", "Jane Doe"} {
		if _, _, ok := parseDate(in, 2025); ok {
			t.Errorf("parseDate(%q) succeeded, want failure", in)
		}
	}
}

// ============================================================================
// Null normalization Tests
// ============================================================================

func TestCleanNull(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Jane  ", "Jane"},
		{"", ""},
		{"   ", ""},
		{"N/A", ""},
		{"nan", ""},
		{"-", ""},
		{"NULL", ""},
		{"IP-4411", "IP-4411"},
	}

	for _, tt := range tests {
		if got := cleanNull(tt.in); got != tt.want {
			t.Errorf("cleanNull(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ============================================================================
// Vocabulary normalization Tests
// ============================================================================

func TestNormalizeGender(t *testing.T) {
	defaultPolicy := DefaultPolicy()
	otherPolicy := DefaultPolicy()
	otherPolicy.GenderFallbackOther = true

	tests := []struct {
		in     string
		policy Policy
		want   string
	}{
		{"m", defaultPolicy, GenderMale},
		{"M", defaultPolicy, GenderMale},
		{"Male", defaultPolicy, GenderMale},
		{"f", defaultPolicy, GenderFemale},
		{"FEMALE", defaultPolicy, GenderFemale},
		{"other", defaultPolicy, GenderOther},
		{"X", defaultPolicy, ""},
		{"X", otherPolicy, GenderOther},
		{"", defaultPolicy, ""},
	}

	for _, tt := range tests {
		if got := normalizeGender(tt.in, tt.policy); got != tt.want {
			t.Errorf("normalizeGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDelivery(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		policy     DeliveryPolicy
		want       string
		recognized bool
	}{
		{"canonical", "Normal", DeliveryNull, "Normal", true},
		{"case insensitive", "c-section", DeliveryNull, "C-Section", true},
		{"abbreviation", "SVD", DeliveryNull, "Spontaneous Vertex Delivery", true},
		{"slash form", "C/S", DeliveryNull, "C-Section", true},
		{"unrecognized nulled", "water birth", DeliveryNull, "", false},
		{"unrecognized passed through", "water birth", DeliveryPassThrough, "Water Birth", false},
		{"unrecognized forced normal", "water birth", DeliveryNormal, "Normal", false},
		{"empty", "", DeliveryNull, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			p.DeliveryFallback = tt.policy
			got, recognized := normalizeDelivery(tt.in, p)
			if got != tt.want || recognized != tt.recognized {
				t.Errorf("normalizeDelivery(%q) = (%q, %v), want (%q, %v)",
					tt.in, got, recognized, tt.want, tt.recognized)
			}
		})
	}
}

// ============================================================================
// cleanRow Tests
// ============================================================================

func validRow() rowValues {
	return rowValues{
		RecordDate:          "08/01/2025",
		IPNumber:            "IP-4411",
		MotherName:          "jane doe",
		AdmissionDate:       "05/01/2025",
		DischargeDate:       "09/01/2025",
		DateOfBirth:         "07/01/2025",
		Gender:              "f",
		ModeOfDelivery:      "svd",
		ChildName:           "baby jane",
		FatherName:          "john doe",
		BirthNotificationNo: " 7654321 ",
	}
}

func TestCleanRow_Valid(t *testing.T) {
	c := &collector{}
	rec, ok := cleanRow(validRow(), "Sheet1", 1, DefaultPolicy(), c)
	if !ok {
		t.Fatalf("cleanRow dropped a valid row: %v", c.diags)
	}

	if rec.MotherName != "Jane Doe" {
		t.Errorf("MotherName = %q, want title-cased %q", rec.MotherName, "Jane Doe")
	}
	if rec.ChildName != "Baby Jane" {
		t.Errorf("ChildName = %q, want %q", rec.ChildName, "Baby Jane")
	}
	if rec.BirthNotificationNo != "7654321" {
		t.Errorf("BirthNotificationNo = %q, want trimmed %q", rec.BirthNotificationNo, "7654321")
	}
	if rec.Gender != GenderFemale {
		t.Errorf("Gender = %q, want %q", rec.Gender, GenderFemale)
	}
	if rec.ModeOfDelivery != "Spontaneous Vertex Delivery" {
		t.Errorf("ModeOfDelivery = %q", rec.ModeOfDelivery)
	}
	if rec.RecordDate == nil || !rec.RecordDate.Equal(date(2025, time.January, 8)) {
		t.Errorf("RecordDate = %v", rec.RecordDate)
	}
	if rec.DateOfBirth == nil || !rec.DateOfBirth.Equal(date(2025, time.January, 7)) {
		t.Errorf("DateOfBirth = %v", rec.DateOfBirth)
	}
}

func TestCleanRow_BirthAfterRecordDateCleared(t *testing.T) {
	rv := validRow()
	rv.RecordDate = "05/01/2025"
	rv.DateOfBirth = "09/01/2025"

	c := &collector{}
	rec, ok := cleanRow(rv, "Sheet1", 1, DefaultPolicy(), c)
	if !ok {
		t.Fatal("cleanRow dropped the row")
	}
	if rec.DateOfBirth != nil {
		t.Errorf("DateOfBirth = %v, want nil (birth after record date)", rec.DateOfBirth)
	}
	if len(c.diags) == 0 {
		t.Error("expected a diagnostic for the cleared date")
	}
}

func TestCleanRow_FatherPlaceholderNulled(t *testing.T) {
	tests := []struct {
		name   string
		father string
	}{
		{"unknown", "UNKNOWN"},
		{"dash", "-"},
		{"single char", "J"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := validRow()
			rv.FatherName = tt.father

			c := &collector{}
			rec, ok := cleanRow(rv, "Sheet1", 1, DefaultPolicy(), c)
			if !ok {
				t.Fatal("cleanRow dropped the row")
			}
			if rec.FatherName != "" {
				t.Errorf("FatherName = %q, want empty", rec.FatherName)
			}
		})
	}
}

func TestCleanRow_CompletenessGate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rowValues)
	}{
		{"missing notification no", func(rv *rowValues) { rv.BirthNotificationNo = "" }},
		{"short notification no", func(rv *rowValues) { rv.BirthNotificationNo = "123" }},
		{"missing child name", func(rv *rowValues) { rv.ChildName = "" }},
		{"missing mother name", func(rv *rowValues) { rv.MotherName = "  " }},
		{"short ip number", func(rv *rowValues) { rv.IPNumber = "4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := validRow()
			tt.mutate(&rv)

			c := &collector{}
			if _, ok := cleanRow(rv, "Sheet1", 3, DefaultPolicy(), c); ok {
				t.Fatal("cleanRow emitted an incomplete row")
			}
			if len(c.diags) == 0 {
				t.Fatal("expected a drop diagnostic")
			}
			last := c.diags[len(c.diags)-1]
			if last.Row != 3 {
				t.Errorf("diagnostic row = %d, want 3", last.Row)
			}
		})
	}
}

func TestCleanRow_UnparseableDateBecomesNull(t *testing.T) {
	rv := validRow()
	rv.AdmissionDate = "sometime last week"

	c := &collector{}
	rec, ok := cleanRow(rv, "Sheet1", 1, DefaultPolicy(), c)
	if !ok {
		t.Fatal("cleanRow dropped the row")
	}
	if rec.AdmissionDate != nil {
		t.Errorf("AdmissionDate = %v, want nil", rec.AdmissionDate)
	}
	if len(c.diags) == 0 {
		t.Error("expected a diagnostic for the unparseable date")
	}
}

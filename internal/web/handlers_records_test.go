package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ============================================================================
// Request parsing Tests
// ============================================================================

func TestAPIDate_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"bare date", `"2025-01-08"`, time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", `"2025-01-08T10:30:00Z"`, time.Date(2025, time.January, 8, 10, 30, 0, 0, time.UTC), false},
		{"garbage", `"last tuesday"`, time.Time{}, true},
		{"number", `20250108`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d apiDate
			err := json.Unmarshal([]byte(tt.in), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if !tt.wantErr && !d.Time.Equal(tt.want) {
				t.Errorf("parsed %v, want %v", d.Time, tt.want)
			}
		})
	}
}

func TestRecordPayload_Validate(t *testing.T) {
	valid := func() recordPayload {
		now := apiDate{time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)}
		return recordPayload{
			RecordDate:          &now,
			IPNumber:            "IP-4411",
			MotherName:          "Jane Doe",
			DateOfBirth:         &now,
			ChildName:           "Baby Jane",
			BirthNotificationNo: "7654321",
		}
	}

	if msg := valid().validate(); msg != "" {
		t.Fatalf("valid payload rejected: %s", msg)
	}

	tests := []struct {
		name   string
		mutate func(*recordPayload)
	}{
		{"missing notification no", func(p *recordPayload) { p.BirthNotificationNo = " " }},
		{"missing child name", func(p *recordPayload) { p.ChildName = "" }},
		{"missing mother name", func(p *recordPayload) { p.MotherName = "" }},
		{"missing ip number", func(p *recordPayload) { p.IPNumber = "" }},
		{"missing record date", func(p *recordPayload) { p.RecordDate = nil }},
		{"missing date of birth", func(p *recordPayload) { p.DateOfBirth = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			if msg := p.validate(); msg == "" {
				t.Error("invalid payload accepted")
			}
		})
	}
}

func TestRecordPayload_ToRecord(t *testing.T) {
	dob := apiDate{time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)}
	p := recordPayload{
		IPNumber:            "  IP-4411  ",
		MotherName:          "Jane Doe",
		DateOfBirth:         &dob,
		BirthNotificationNo: "7654321",
	}

	rec := p.toRecord()
	if rec.IPNumber != "IP-4411" {
		t.Errorf("IPNumber = %q, want trimmed", rec.IPNumber)
	}
	if rec.DateOfBirth == nil || !rec.DateOfBirth.Equal(dob.Time) {
		t.Errorf("DateOfBirth = %v", rec.DateOfBirth)
	}
	if rec.RecordDate != nil {
		t.Errorf("RecordDate = %v, want nil", rec.RecordDate)
	}
}

func TestParseLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", defaultPageSize, 0},
		{"explicit", "limit=25&offset=50", 25, 50},
		{"capped", "limit=9999", maxPageSize, 0},
		{"negative ignored", "limit=-5&offset=-2", defaultPageSize, 0},
		{"garbage ignored", "limit=abc", defaultPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/records?"+tt.query, nil)
			limit, offset := parseLimitOffset(r)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("parseLimitOffset = (%d, %d), want (%d, %d)",
					limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

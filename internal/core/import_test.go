package core

import (
	"strings"
	"testing"
	"time"

	"github.com/civreg/civreg/internal/config"
	"github.com/civreg/civreg/internal/ingest"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func importableRecord(notificationNo string) ingest.Record {
	return ingest.Record{
		RecordDate:          datePtr(2025, time.January, 8),
		IPNumber:            "IP-4411",
		MotherName:          "Jane Doe",
		DateOfBirth:         datePtr(2025, time.January, 7),
		ChildName:           "Baby Jane",
		BirthNotificationNo: notificationNo,
	}
}

// ============================================================================
// partitionRecords Tests
// ============================================================================

func TestPartitionRecords_AllEligible(t *testing.T) {
	records := []ingest.Record{
		importableRecord("1000001"),
		importableRecord("1000002"),
	}

	eligible, validation, duplicates := partitionRecords(records, nil)
	if len(eligible) != 2 || len(validation) != 0 || len(duplicates) != 0 {
		t.Errorf("partition = (%d, %d, %d), want (2, 0, 0)",
			len(eligible), len(validation), len(duplicates))
	}
}

func TestPartitionRecords_MissingDates(t *testing.T) {
	rec := importableRecord("1000001")
	rec.RecordDate = nil
	rec.DateOfBirth = nil

	eligible, validation, _ := partitionRecords([]ingest.Record{rec}, nil)
	if len(eligible) != 0 {
		t.Fatal("record without required dates was eligible")
	}
	if len(validation) != 1 {
		t.Fatalf("validation errors = %d, want 1", len(validation))
	}
	if !strings.Contains(validation[0].Reason, ingest.FieldRecordDate) ||
		!strings.Contains(validation[0].Reason, ingest.FieldDateOfBirth) {
		t.Errorf("reason %q does not name the missing dates", validation[0].Reason)
	}
}

func TestPartitionRecords_InFileDuplicate(t *testing.T) {
	records := []ingest.Record{
		importableRecord("1000001"),
		importableRecord("1000001"),
	}

	eligible, _, duplicates := partitionRecords(records, nil)
	if len(eligible) != 1 {
		t.Errorf("eligible = %d, want 1 (first occurrence wins)", len(eligible))
	}
	if len(duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(duplicates))
	}
	if duplicates[0].NotificationNo != "1000001" {
		t.Errorf("duplicate notification no = %q", duplicates[0].NotificationNo)
	}
}

func TestPartitionRecords_ExistingRecord(t *testing.T) {
	records := []ingest.Record{
		importableRecord("1000001"),
		importableRecord("1000002"),
	}
	existing := map[string]bool{"1000001": true}

	eligible, _, duplicates := partitionRecords(records, existing)
	if len(eligible) != 1 || eligible[0].BirthNotificationNo != "1000002" {
		t.Errorf("eligible = %+v, want only 1000002", eligible)
	}
	if len(duplicates) != 1 || duplicates[0].Reason != "record already exists" {
		t.Errorf("duplicates = %+v", duplicates)
	}
}

func TestPartitionRecords_ValidationBeforeDuplicateCheck(t *testing.T) {
	// An invalid row must land in the validation bucket even when its
	// notification number repeats.
	bad := importableRecord("1000001")
	bad.DateOfBirth = nil
	records := []ingest.Record{bad, importableRecord("1000001")}

	eligible, validation, duplicates := partitionRecords(records, nil)
	if len(validation) != 1 {
		t.Errorf("validation = %d, want 1", len(validation))
	}
	if len(duplicates) != 0 {
		t.Errorf("duplicates = %d, want 0", len(duplicates))
	}
	if len(eligible) != 1 {
		t.Errorf("eligible = %d, want 1", len(eligible))
	}
}

// ============================================================================
// Policy mapping Tests
// ============================================================================

func TestIngestPolicy(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ImportConfig
		want ingest.DeliveryPolicy
	}{
		{"default null", config.ImportConfig{DeliveryFallback: "null"}, ingest.DeliveryNull},
		{"passthrough", config.ImportConfig{DeliveryFallback: "passthrough"}, ingest.DeliveryPassThrough},
		{"normal", config.ImportConfig{DeliveryFallback: "Normal"}, ingest.DeliveryNormal},
		{"unknown falls back to null", config.ImportConfig{DeliveryFallback: "??"}, ingest.DeliveryNull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ingestPolicy(tt.cfg); got.DeliveryFallback != tt.want {
				t.Errorf("DeliveryFallback = %v, want %v", got.DeliveryFallback, tt.want)
			}
		})
	}
}

func TestIngestPolicy_FallbackYear(t *testing.T) {
	p := ingestPolicy(config.ImportConfig{FallbackYear: 2024, DeliveryFallback: "null"})
	if p.FallbackYear != 2024 {
		t.Errorf("FallbackYear = %d, want 2024", p.FallbackYear)
	}

	// Zero keeps the engine default rather than producing year-0 dates.
	p = ingestPolicy(config.ImportConfig{DeliveryFallback: "null"})
	if p.FallbackYear != ingest.DefaultPolicy().FallbackYear {
		t.Errorf("FallbackYear = %d, want engine default", p.FallbackYear)
	}
}

func TestIngestPolicy_GenderFallback(t *testing.T) {
	p := ingestPolicy(config.ImportConfig{GenderFallbackOther: true, DeliveryFallback: "null"})
	if !p.GenderFallbackOther {
		t.Error("GenderFallbackOther not carried through")
	}
}

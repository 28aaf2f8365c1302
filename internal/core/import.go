package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civreg/civreg/internal/config"
	"github.com/civreg/civreg/internal/ingest"
	"github.com/civreg/civreg/internal/logging"
)

// RowError describes why one parsed row was not imported.
type RowError struct {
	NotificationNo string `json:"birth_notification_no,omitempty"`
	Reason         string `json:"reason"`
}

// ImportOutcome summarizes one workbook import.
type ImportOutcome struct {
	FileName string `json:"file_name"`
	DryRun   bool   `json:"dry_run"`

	// TotalParsed is the number of rows the engine emitted.
	TotalParsed int `json:"total_parsed"`

	// Created is the number of rows inserted (or, on a dry run, the
	// number that would have been).
	Created int `json:"created"`

	ValidationErrors []RowError `json:"validation_errors,omitempty"`
	DuplicateErrors  []RowError `json:"duplicate_errors,omitempty"`
	DatabaseErrors   []RowError `json:"database_errors,omitempty"`

	Diagnostics []ingest.Diagnostic   `json:"diagnostics,omitempty"`
	Sheets      []ingest.SheetSummary `json:"sheets"`
	Duration    time.Duration         `json:"-"`
}

// Errors reports the total number of rejected rows.
func (o *ImportOutcome) Errors() int {
	return len(o.ValidationErrors) + len(o.DuplicateErrors) + len(o.DatabaseErrors)
}

// ingestPolicy maps the import configuration onto engine policy flags.
func ingestPolicy(cfg config.ImportConfig) ingest.Policy {
	p := ingest.DefaultPolicy()
	p.GenderFallbackOther = cfg.GenderFallbackOther
	if cfg.FallbackYear != 0 {
		p.FallbackYear = cfg.FallbackYear
	}
	switch strings.ToLower(cfg.DeliveryFallback) {
	case "passthrough":
		p.DeliveryFallback = ingest.DeliveryPassThrough
	case "normal":
		p.DeliveryFallback = ingest.DeliveryNormal
	default:
		p.DeliveryFallback = ingest.DeliveryNull
	}
	return p
}

// validateForImport checks requirements the engine leaves open: a stored
// record must carry a registration date and a date of birth.
func validateForImport(rec ingest.Record) (string, bool) {
	var missing []string
	if rec.RecordDate == nil {
		missing = append(missing, ingest.FieldRecordDate)
	}
	if rec.DateOfBirth == nil {
		missing = append(missing, ingest.FieldDateOfBirth)
	}
	if len(missing) > 0 {
		return "missing required date: " + strings.Join(missing, ", "), false
	}
	return "", true
}

// partitionRecords screens parsed rows before any database writes. It
// returns the rows eligible for insert, plus the validation failures
// and duplicates (both in-file repeats and numbers already stored).
func partitionRecords(records []ingest.Record, existing map[string]bool) (eligible []ingest.Record, validation, duplicates []RowError) {
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		if reason, ok := validateForImport(rec); !ok {
			validation = append(validation, RowError{
				NotificationNo: rec.BirthNotificationNo,
				Reason:         reason,
			})
			continue
		}

		no := rec.BirthNotificationNo
		if seen[no] {
			duplicates = append(duplicates, RowError{
				NotificationNo: no,
				Reason:         "duplicate notification number within file",
			})
			continue
		}
		if existing[no] {
			duplicates = append(duplicates, RowError{
				NotificationNo: no,
				Reason:         "record already exists",
			})
			seen[no] = true
			continue
		}

		seen[no] = true
		eligible = append(eligible, rec)
	}
	return eligible, validation, duplicates
}

// Import parses a workbook and inserts its records. A failed row rolls
// back only itself via a savepoint; the rest of the batch commits. When
// dryRun is set, nothing is written and the outcome reports what would
// have happened. ErrNoRecords from the engine is returned alongside a
// populated outcome so callers can surface the diagnostics.
func (s *Service) Import(ctx context.Context, fileName string, data []byte, createdBy *uuid.UUID, dryRun bool) (*ImportOutcome, error) {
	start := time.Now()
	log := logging.WithFields(ctx, "file_name", fileName, "dry_run", dryRun)

	outcome := &ImportOutcome{FileName: fileName, DryRun: dryRun}

	result, err := ingest.Parse(data, ingestPolicy(s.cfg.Import))
	if result != nil {
		outcome.TotalParsed = len(result.Records)
		outcome.Diagnostics = result.Diagnostics
		outcome.Sheets = result.Sheets
	}
	if err != nil {
		if errors.Is(err, ingest.ErrNoRecords) {
			log.Warn("workbook produced no records",
				"diagnostics", len(outcome.Diagnostics))
			return outcome, err
		}
		return nil, fmt.Errorf("parse workbook: %w", err)
	}

	nos := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		nos = append(nos, rec.BirthNotificationNo)
	}
	existing, err := s.ExistingNotificationNos(ctx, nos)
	if err != nil {
		return nil, err
	}

	eligible, validation, duplicates := partitionRecords(result.Records, existing)
	outcome.ValidationErrors = validation
	outcome.DuplicateErrors = duplicates

	if dryRun {
		outcome.Created = len(eligible)
		outcome.Duration = time.Since(start)
		log.Info("dry-run import finished",
			"would_create", outcome.Created,
			"errors", outcome.Errors())
		return outcome, nil
	}

	if len(eligible) > 0 {
		if err := s.insertBatch(ctx, eligible, createdBy, outcome); err != nil {
			return nil, err
		}
	}

	outcome.Duration = time.Since(start)
	log.Info("import finished",
		"created", outcome.Created,
		"errors", outcome.Errors(),
		"duration_ms", outcome.Duration.Milliseconds())
	return outcome, nil
}

// insertBatch inserts eligible rows inside one transaction, guarding
// each insert with a savepoint so a single failure does not poison the
// transaction.
func (s *Service) insertBatch(ctx context.Context, records []ingest.Record, createdBy *uuid.UUID, outcome *ImportOutcome) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, rec := range records {
		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}

		if _, err := insertRecord(ctx, tx, rec, createdBy); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return fmt.Errorf("rollback savepoint: %w", rbErr)
			}

			rowErr := RowError{
				NotificationNo: rec.BirthNotificationNo,
				Reason:         MapError(err).Message,
			}
			if isUniqueViolation(err) {
				outcome.DuplicateErrors = append(outcome.DuplicateErrors, rowErr)
			} else {
				outcome.DatabaseErrors = append(outcome.DatabaseErrors, rowErr)
			}
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		outcome.Created++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

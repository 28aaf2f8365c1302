package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civreg/civreg/internal/ingest"
)

// BirthRecord is a persisted birth registration. Optional fields use
// pointers (dates) or empty strings (text) and map to SQL NULL.
type BirthRecord struct {
	ID                  uuid.UUID  `json:"id"`
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
	CreatedBy           *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

const recordColumns = `id, record_date, ip_number, mother_name, admission_date,
	discharge_date, date_of_birth, gender, mode_of_delivery, child_name,
	father_name, birth_notification_no, created_by, created_at, updated_at`

// scanRecord reads one birth record row.
func scanRecord(row pgx.Row) (BirthRecord, error) {
	var (
		rec                  BirthRecord
		gender, mode, father *string
	)

	err := row.Scan(
		&rec.ID, &rec.RecordDate, &rec.IPNumber, &rec.MotherName,
		&rec.AdmissionDate, &rec.DischargeDate, &rec.DateOfBirth,
		&gender, &mode, &rec.ChildName, &father,
		&rec.BirthNotificationNo, &rec.CreatedBy,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return BirthRecord{}, err
	}

	rec.Gender = deref(gender)
	rec.ModeOfDelivery = deref(mode)
	rec.FatherName = deref(father)
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// textOrNil maps empty strings to SQL NULL.
func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// collectRecords drains rows into a slice.
func collectRecords(rows pgx.Rows) ([]BirthRecord, error) {
	defer rows.Close()

	var records []BirthRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// insertRecord writes one normalized record. It runs on any DBTX so the
// import pipeline can call it inside a transaction.
func insertRecord(ctx context.Context, db DBTX, rec ingest.Record, createdBy *uuid.UUID) (BirthRecord, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO birth_records (
			record_date, ip_number, mother_name, admission_date,
			discharge_date, date_of_birth, gender, mode_of_delivery,
			child_name, father_name, birth_notification_no, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+recordColumns,
		rec.RecordDate, rec.IPNumber, rec.MotherName, rec.AdmissionDate,
		rec.DischargeDate, rec.DateOfBirth, textOrNil(rec.Gender),
		textOrNil(rec.ModeOfDelivery), rec.ChildName,
		textOrNil(rec.FatherName), rec.BirthNotificationNo, createdBy,
	)
	return scanRecord(row)
}

// CreateRecord inserts a single record.
func (s *Service) CreateRecord(ctx context.Context, rec ingest.Record, createdBy *uuid.UUID) (BirthRecord, error) {
	created, err := insertRecord(ctx, s.pool, rec, createdBy)
	if err != nil {
		if isUniqueViolation(err) {
			return BirthRecord{}, ErrDuplicateNotification
		}
		return BirthRecord{}, fmt.Errorf("insert record: %w", err)
	}
	return created, nil
}

// GetRecord fetches a record by ID.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (BirthRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM birth_records WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return BirthRecord{}, ErrNotFound
	}
	if err != nil {
		return BirthRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// GetRecordByNotificationNo fetches a record by its birth notification
// number.
func (s *Service) GetRecordByNotificationNo(ctx context.Context, notificationNo string) (BirthRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM birth_records WHERE birth_notification_no = $1`,
		notificationNo)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return BirthRecord{}, ErrNotFound
	}
	if err != nil {
		return BirthRecord{}, fmt.Errorf("get record by notification no: %w", err)
	}
	return rec, nil
}

// ExistingNotificationNos returns which of the given notification
// numbers already exist, in one query.
func (s *Service) ExistingNotificationNos(ctx context.Context, nos []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(nos))
	if len(nos) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT birth_notification_no FROM birth_records WHERE birth_notification_no = ANY($1)`,
		nos)
	if err != nil {
		return nil, fmt.Errorf("check notification numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return nil, fmt.Errorf("scan notification no: %w", err)
		}
		existing[no] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return existing, nil
}

// UpdateRecord replaces the canonical fields of a record.
func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, rec ingest.Record) (BirthRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE birth_records SET
			record_date = $2, ip_number = $3, mother_name = $4,
			admission_date = $5, discharge_date = $6, date_of_birth = $7,
			gender = $8, mode_of_delivery = $9, child_name = $10,
			father_name = $11, birth_notification_no = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+recordColumns,
		id, rec.RecordDate, rec.IPNumber, rec.MotherName,
		rec.AdmissionDate, rec.DischargeDate, rec.DateOfBirth,
		textOrNil(rec.Gender), textOrNil(rec.ModeOfDelivery),
		rec.ChildName, textOrNil(rec.FatherName), rec.BirthNotificationNo,
	)

	updated, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return BirthRecord{}, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return BirthRecord{}, ErrDuplicateNotification
		}
		return BirthRecord{}, fmt.Errorf("update record: %w", err)
	}
	return updated, nil
}

// DeleteRecord removes a record by ID.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM birth_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecords returns records ordered by creation time, newest first.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) ([]BirthRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM birth_records
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collectRecords(rows)
}

// CountRecords returns the total number of records.
func (s *Service) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM birth_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// SearchRecords matches q case-insensitively against the child, mother,
// and father names, the notification number, and the IP number.
func (s *Service) SearchRecords(ctx context.Context, q string, limit, offset int) ([]BirthRecord, error) {
	pattern := "%" + q + "%"
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM birth_records
		 WHERE child_name ILIKE $1
		    OR mother_name ILIKE $1
		    OR father_name ILIKE $1
		    OR birth_notification_no ILIKE $1
		    OR ip_number ILIKE $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return collectRecords(rows)
}

// RecordsByDateRange returns records whose record_date falls within
// [start, end].
func (s *Service) RecordsByDateRange(ctx context.Context, start, end time.Time, limit, offset int) ([]BirthRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM birth_records
		 WHERE record_date BETWEEN $1 AND $2
		 ORDER BY record_date DESC LIMIT $3 OFFSET $4`,
		start, end, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("records by date range: %w", err)
	}
	return collectRecords(rows)
}

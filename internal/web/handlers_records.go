package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civreg/civreg/internal/core"
	"github.com/civreg/civreg/internal/ingest"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// apiDate accepts bare dates ("2025-01-08") as well as RFC 3339
// timestamps in request bodies.
type apiDate struct {
	time.Time
}

func (d *apiDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type recordPayload struct {
	RecordDate          *apiDate `json:"record_date"`
	IPNumber            string   `json:"ip_number"`
	MotherName          string   `json:"mother_name"`
	AdmissionDate       *apiDate `json:"admission_date"`
	DischargeDate       *apiDate `json:"discharge_date"`
	DateOfBirth         *apiDate `json:"date_of_birth"`
	Gender              string   `json:"gender"`
	ModeOfDelivery      string   `json:"mode_of_delivery"`
	ChildName           string   `json:"child_name"`
	FatherName          string   `json:"father_name"`
	BirthNotificationNo string   `json:"birth_notification_no"`
}

func (p recordPayload) toRecord() ingest.Record {
	rec := ingest.Record{
		IPNumber:            strings.TrimSpace(p.IPNumber),
		MotherName:          strings.TrimSpace(p.MotherName),
		Gender:              strings.TrimSpace(p.Gender),
		ModeOfDelivery:      strings.TrimSpace(p.ModeOfDelivery),
		ChildName:           strings.TrimSpace(p.ChildName),
		FatherName:          strings.TrimSpace(p.FatherName),
		BirthNotificationNo: strings.TrimSpace(p.BirthNotificationNo),
	}
	if p.RecordDate != nil {
		rec.RecordDate = &p.RecordDate.Time
	}
	if p.AdmissionDate != nil {
		rec.AdmissionDate = &p.AdmissionDate.Time
	}
	if p.DischargeDate != nil {
		rec.DischargeDate = &p.DischargeDate.Time
	}
	if p.DateOfBirth != nil {
		rec.DateOfBirth = &p.DateOfBirth.Time
	}
	return rec
}

// validate reports the first missing required field.
func (p recordPayload) validate() string {
	switch {
	case strings.TrimSpace(p.BirthNotificationNo) == "":
		return "birth_notification_no is required"
	case strings.TrimSpace(p.ChildName) == "":
		return "child_name is required"
	case strings.TrimSpace(p.MotherName) == "":
		return "mother_name is required"
	case strings.TrimSpace(p.IPNumber) == "":
		return "ip_number is required"
	case p.RecordDate == nil:
		return "record_date is required"
	case p.DateOfBirth == nil:
		return "date_of_birth is required"
	}
	return ""
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := payload.validate(); msg != "" {
		writeError(w, r, http.StatusUnprocessableEntity, msg)
		return
	}

	user, _ := userFromContext(r.Context())
	rec, err := s.service.CreateRecord(r.Context(), payload.toRecord(), &user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := s.service.GetRecord(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := payload.validate(); msg != "" {
		writeError(w, r, http.StatusUnprocessableEntity, msg)
		return
	}

	rec, err := s.service.UpdateRecord(r.Context(), id, payload.toRecord())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.service.DeleteRecord(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordListResponse struct {
	Records []core.BirthRecord `json:"records"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	records, err := s.service.ListRecords(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	total, err := s.service.CountRecords(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.BirthRecord{}
	}
	writeJSON(w, r, http.StatusOK, recordListResponse{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *Server) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit, offset := parseLimitOffset(r)

	records, err := s.service.SearchRecords(r.Context(), q, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.BirthRecord{}
	}
	writeJSON(w, r, http.StatusOK, records)
}

func (s *Server) handleRecordsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, r, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}
	limit, offset := parseLimitOffset(r)

	records, err := s.service.RecordsByDateRange(r.Context(), start, end, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.BirthRecord{}
	}
	writeJSON(w, r, http.StatusOK, records)
}

type importStatusResponse struct {
	Exists bool              `json:"exists"`
	Record *core.BirthRecord `json:"record,omitempty"`
}

// handleImportStatus reports whether a notification number has been
// imported.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	notificationNo := chi.URLParam(r, "notificationNo")

	rec, err := s.service.GetRecordByNotificationNo(r.Context(), notificationNo)
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, r, http.StatusOK, importStatusResponse{Exists: false})
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, importStatusResponse{Exists: true, Record: &rec})
}

// handleImport accepts a multipart workbook upload and runs the import
// pipeline synchronously.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(header.Filename)); ext {
	case ".xlsx", ".xls":
	default:
		writeError(w, r, http.StatusUnsupportedMediaType, "only .xlsx and .xls files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	user, _ := userFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	outcome, err := s.service.Import(ctx, header.Filename, data, &user.ID, dryRun)
	if err != nil {
		if errors.Is(err, ingest.ErrNoRecords) {
			writeJSON(w, r, http.StatusUnprocessableEntity, outcome)
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcome)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// parseLimitOffset reads pagination query parameters with sane bounds.
func parseLimitOffset(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceSelect = `
	SELECT a.id, a.identity_id, i.name, to_char(a.date, 'YYYY-MM-DD'), a.time_in, a.time_out,
	       a.status, a.location, a.notes, a.created_at
	FROM attendance a
	JOIN identities i ON i.id = a.identity_id
`

func scanRecord(row interface{ Scan(...any) error }) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var timeOut sql.NullTime
	var status string
	if err := row.Scan(&rec.ID, &rec.IdentityID, &rec.IdentityName, &rec.Date, &rec.TimeIn, &timeOut,
		&status, &rec.Location, &rec.Notes, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Status = database.AttendanceStatus(status)
	if timeOut.Valid {
		t := timeOut.Time
		rec.TimeOut = &t
	}
	return &rec, nil
}

// HasRecord reports whether the identity has a record on date.
func (r *AttendanceRepository) HasRecord(ctx context.Context, identityID, date string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE identity_id = $1 AND date = $2::date)",
		identityID, date,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("check attendance exists", err)
	}
	return exists, nil
}

// GetRecord returns the record for identity and date or database.ErrNotFound.
func (r *AttendanceRepository) GetRecord(ctx context.Context, identityID, date string) (*database.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, attendanceSelect+" WHERE a.identity_id = $1 AND a.date = $2::date", identityID, date)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get attendance record", err)
	}
	return rec, nil
}

// Insert stores a new record. The (identity_id, date) unique constraint turns a concurrent
// second insert into database.ErrDuplicateRecord.
func (r *AttendanceRepository) Insert(ctx context.Context, record *database.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance (id, identity_id, date, time_in, status, location, notes)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7)
		RETURNING created_at
	`, record.ID, record.IdentityID, record.Date, record.TimeIn, string(record.Status),
		record.Location, record.Notes).Scan(&record.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolation:
				return database.ErrDuplicateRecord
			case "23503": // foreign_key_violation
				return fmt.Errorf("identity %s: %w", record.IdentityID, database.ErrIdentityNotFound)
			}
		}
		return storeErr("insert attendance record", err)
	}
	return nil
}

// SetTimeOut records the check-out time.
func (r *AttendanceRepository) SetTimeOut(ctx context.Context, recordID string, timeOut time.Time) error {
	result, err := r.pool.Exec(ctx, "UPDATE attendance SET time_out = $2 WHERE id = $1", recordID, timeOut)
	if err != nil {
		return storeErr("set time out", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// List returns records matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != "" {
		add("a.date >= $%d::date", filter.From)
	}
	if filter.To != "" {
		add("a.date <= $%d::date", filter.To)
	}
	if filter.IdentityID != "" {
		add("a.identity_id = $%d", filter.IdentityID)
	}
	if filter.Status != "" {
		add("a.status = $%d", string(filter.Status))
	}

	query := attendanceSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.date DESC, a.time_in DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var result []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate attendance", err)
	}
	return result, nil
}

// CountByStatus returns record counts per status for date.
func (r *AttendanceRepository) CountByStatus(ctx context.Context, date string) (map[database.AttendanceStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM attendance WHERE date = $1::date GROUP BY status", date)
	if err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[database.AttendanceStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[database.AttendanceStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate status counts", err)
	}
	return counts, nil
}

var _ database.AttendanceRecorder = (*AttendanceRepository)(nil)

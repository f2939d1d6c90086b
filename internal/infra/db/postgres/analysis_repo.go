package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save insert/update Analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, user_id, status, source, ocr_text, result_json, error_kind, error_message,
   notes, document_url, page_count, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status,
  ocr_text=EXCLUDED.ocr_text,
  result_json=EXCLUDED.result_json,
  error_kind=EXCLUDED.error_kind,
  error_message=EXCLUDED.error_message,
  notes=EXCLUDED.notes,
  document_url=EXCLUDED.document_url,
  page_count=EXCLUDED.page_count,
  completed_at=EXCLUDED.completed_at;
`
	resultJSON, err := marshalResult(a.Result)
	if err != nil {
		return err
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.UserID), string(a.Status), string(a.Source),
		a.OCRText, resultJSON, a.ErrorKind, a.ErrorMessage,
		a.Notes, a.DocumentURL, a.PageCount, created, a.CompletedAt,
	)
	return err
}

// Get by ID + owning user
func (r *AnalysisRepository) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, user_id, status, source, ocr_text, result_json, error_kind, error_message,
       notes, document_url, page_count, created_at, completed_at
FROM analyses
WHERE user_id=$1 AND id=$2 LIMIT 1;
`
	return scanAnalysis(r.db.QueryRowContext(ctx, q, userID, id))
}

// Paginate with offset + limit (classic pagination)
func (r *AnalysisRepository) Paginate(ctx context.Context, userID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, user_id, status, source, ocr_text, result_json, error_kind, error_message,
       notes, document_url, page_count, created_at, completed_at
FROM analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, userID, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analyses WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// UpdateStatus only touches the status column
func (r *AnalysisRepository) UpdateStatus(ctx context.Context, userID string, id domain.AnalysisID, status domain.Status) error {
	const q = `UPDATE analyses SET status=$1 WHERE user_id=$2 AND id=$3;`
	_, err := r.db.ExecContext(ctx, q, string(status), userID, id)
	return err
}

// MarkCompleted stores the terminal completed state with its result.
func (r *AnalysisRepository) MarkCompleted(ctx context.Context, userID string, id domain.AnalysisID, result *domain.Result, completedAt time.Time) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	const q = `
UPDATE analyses
SET status=$1, result_json=$2, error_kind='', error_message='', completed_at=$3
WHERE user_id=$4 AND id=$5;`
	_, err = r.db.ExecContext(ctx, q, string(domain.StatusCompleted), resultJSON, completedAt, userID, id)
	return err
}

// MarkError stores the terminal error state with the classified kind.
func (r *AnalysisRepository) MarkError(ctx context.Context, userID string, id domain.AnalysisID, kind, message string) error {
	const q = `
UPDATE analyses
SET status=$1, error_kind=$2, error_message=$3, completed_at=$4
WHERE user_id=$5 AND id=$6;`
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusError), kind, message, time.Now(), userID, id)
	return err
}

// Delete removes an analysis and its dependent rows in one transaction.
// Admin-only; ownership is not re-checked here.
func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM chat_messages WHERE analysis_id=$1`,
		`DELETE FROM credit_scores WHERE analysis_id=$1`,
		`DELETE FROM pdf_processing_logs WHERE analysis_id=$1`,
		`DELETE FROM user_notes WHERE analysis_id=$1`,
		`DELETE FROM dispute_letters WHERE analysis_id=$1`,
		`DELETE FROM analyses WHERE id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var resultJSON sql.NullString
	var completed sql.NullTime
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Status, &a.Source, &a.OCRText, &resultJSON,
		&a.ErrorKind, &a.ErrorMessage, &a.Notes, &a.DocumentURL, &a.PageCount,
		&a.CreatedAt, &completed,
	); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	if resultJSON.Valid && resultJSON.String != "" && resultJSON.String != "null" {
		var res domain.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err == nil {
			a.Result = &res
		}
	}
	return &a, nil
}

func marshalResult(res *domain.Result) (sql.NullString, error) {
	if res == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sessionReturning = `RETURNING id::text, workspace_id, import_type, filename, total_records,
  processed_records, successful_records, failed_records, status, import_mode,
  duplicate_field, field_mapping, COALESCE(error_log, ''), created_by, created_at, updated_at, completed_at`

// ImportBatchRepository commits batch outcomes with pgx so the marker, the
// error rows and the counter update share one transaction.
type ImportBatchRepository struct {
	pool *pgxpool.Pool
}

func NewImportBatchRepository(pool *pgxpool.Pool) *ImportBatchRepository {
	return &ImportBatchRepository{pool: pool}
}

func (r *ImportBatchRepository) FindBatch(ctx context.Context, sessionID string, startIndex int64) (*domain.CommittedBatch, error) {
	if !validID(sessionID) {
		return nil, nil
	}

	query, args, err := psql.
		Select("session_id::text", "start_index", "row_count", "successful", "failed", "failures", "created_at").
		From("import_batches").
		Where(sq.Eq{"session_id": sessionID, "start_index": startIndex}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find batch query: %w", err)
	}

	var (
		batch    domain.CommittedBatch
		failures []byte
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&batch.SessionID,
		&batch.StartIndex,
		&batch.RowCount,
		&batch.Successful,
		&batch.Failed,
		&failures,
		&batch.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find import batch: %w", classify(err))
	}
	if err := json.Unmarshal(failures, &batch.Failures); err != nil {
		return nil, fmt.Errorf("decode batch failures: %w", err)
	}
	return &batch, nil
}

func (r *ImportBatchRepository) CommitBatch(ctx context.Context, commit domain.BatchCommit) (domain.ImportSession, error) {
	if !validID(commit.SessionID) {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}

	failures := commit.Failures
	if failures == nil {
		failures = []domain.RowFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("encode batch failures: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("begin tx: %w", classify(err))
	}
	defer tx.Rollback(ctx)

	inserted, err := insertBatchMarker(ctx, tx, commit, failuresJSON)
	if err != nil {
		return domain.ImportSession{}, err
	}
	if !inserted {
		return domain.ImportSession{}, domain.ErrBatchAlreadyCommitted
	}

	session, err := applyBatchCounters(ctx, tx, commit)
	if err != nil {
		return domain.ImportSession{}, err
	}

	if err := copyImportErrors(ctx, tx, commit.Errors); err != nil {
		return domain.ImportSession{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ImportSession{}, fmt.Errorf("commit import batch: %w", classify(err))
	}
	return session, nil
}

func insertBatchMarker(ctx context.Context, tx pgx.Tx, commit domain.BatchCommit, failures []byte) (bool, error) {
	query, args, err := psql.
		Insert("import_batches").
		Columns("session_id", "start_index", "row_count", "successful", "failed", "failures").
		Values(commit.SessionID, commit.StartIndex, commit.RowCount, commit.Successful, commit.Failed, failures).
		Suffix("ON CONFLICT (session_id, start_index) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build batch marker insert: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert batch marker: %w", classify(err))
	}
	return tag.RowsAffected() == 1, nil
}

// applyBatchCounters increments the session counters and completes the
// session once every row is accounted for. Sessions that left the active
// states, or would overflow their total, are not touched.
func applyBatchCounters(ctx context.Context, tx pgx.Tx, commit domain.BatchCommit) (domain.ImportSession, error) {
	now := time.Now().UTC()
	query, args, err := psql.
		Update("import_sessions").
		Set("processed_records", sq.Expr("processed_records + ?", commit.RowCount)).
		Set("successful_records", sq.Expr("successful_records + ?", commit.Successful)).
		Set("failed_records", sq.Expr("failed_records + ?", commit.Failed)).
		Set("status", sq.Expr("CASE WHEN processed_records + ? = total_records THEN ? ELSE status END",
			commit.RowCount, string(domain.StatusCompleted))).
		Set("completed_at", sq.Expr("CASE WHEN processed_records + ? = total_records THEN ?::timestamptz ELSE completed_at END",
			commit.RowCount, now)).
		Set("updated_at", now).
		Where(sq.Eq{"id": commit.SessionID}).
		Where(sq.Eq{"status": []string{string(domain.StatusPending), string(domain.StatusProcessing)}}).
		Where(sq.Expr("processed_records + ? <= total_records", commit.RowCount)).
		Suffix(sessionReturning).
		ToSql()
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("build counter update: %w", err)
	}

	session, err := scanSession(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImportSession{}, domain.ErrSessionStateChanged
	}
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("update session counters: %w", classify(err))
	}
	return session, nil
}

func copyImportErrors(ctx context.Context, tx pgx.Tx, errs []domain.ImportError) error {
	if len(errs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(errs))
	for _, e := range errs {
		raw, err := json.Marshal(e.RawData)
		if err != nil {
			return fmt.Errorf("encode raw row %d: %w", e.RowNumber, err)
		}
		rows = append(rows, []any{
			e.SessionID,
			e.RowNumber,
			nullableText(e.FieldName),
			string(e.ErrorType),
			e.ErrorMessage,
			raw,
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"import_errors"},
		[]string{"session_id", "row_number", "field_name", "error_type", "error_message", "raw_data"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy import errors: %w", classify(err))
	}
	return nil
}

func scanSession(row pgx.Row) (domain.ImportSession, error) {
	var (
		s       domain.ImportSession
		mapping []byte
	)
	err := row.Scan(
		&s.ID,
		&s.WorkspaceID,
		&s.ImportType,
		&s.Filename,
		&s.TotalRecords,
		&s.ProcessedRecords,
		&s.SuccessfulRecords,
		&s.FailedRecords,
		&s.Status,
		&s.ImportMode,
		&s.DuplicateField,
		&mapping,
		&s.ErrorLog,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return domain.ImportSession{}, err
	}
	if err := json.Unmarshal(mapping, &s.FieldMapping); err != nil {
		return domain.ImportSession{}, fmt.Errorf("decode field mapping: %w", err)
	}
	return s, nil
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

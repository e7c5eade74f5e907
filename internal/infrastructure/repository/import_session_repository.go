package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/db/models"
)

type ImportSessionRepository struct {
	db *gorm.DB
}

func NewImportSessionRepository(db *gorm.DB) *ImportSessionRepository {
	return &ImportSessionRepository{db: db}
}

func (r *ImportSessionRepository) Create(ctx context.Context, session domain.ImportSession) (domain.ImportSession, error) {
	row := toSessionModel(session)
	row.ID = uuid.NewString()

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.ImportSession{}, fmt.Errorf("create import session: %w", classify(err))
	}
	return toSessionDomain(row), nil
}

func (r *ImportSessionRepository) Get(ctx context.Context, sessionID string) (domain.ImportSession, error) {
	if !validID(sessionID) {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}

	var row models.ImportSession
	err := r.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ImportSession{}, domain.ErrSessionNotFound
		}
		return domain.ImportSession{}, fmt.Errorf("get import session: %w", classify(err))
	}
	return toSessionDomain(row), nil
}

func (r *ImportSessionRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]domain.ImportSession, error) {
	var rows []models.ImportSession
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list import sessions: %w", classify(err))
	}

	sessions := make([]domain.ImportSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, toSessionDomain(row))
	}
	return sessions, nil
}

func (r *ImportSessionRepository) TransitionStatus(ctx context.Context, sessionID string, from []domain.SessionStatus, to domain.SessionStatus, errorLog string) (domain.ImportSession, error) {
	if !validID(sessionID) {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}

	fromValues := make([]string, 0, len(from))
	for _, status := range from {
		fromValues = append(fromValues, string(status))
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":     string(to),
		"updated_at": now,
	}
	if errorLog != "" {
		updates["error_log"] = errorLog
	}
	if to == domain.StatusCompleted {
		updates["completed_at"] = now
	}

	var row models.ImportSession
	res := r.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("id = ? AND status IN ?", sessionID, fromValues).
		Updates(updates)
	if res.Error != nil {
		return domain.ImportSession{}, fmt.Errorf("transition import session: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, sessionID); err != nil {
			return domain.ImportSession{}, err
		}
		return domain.ImportSession{}, domain.ErrSessionStateChanged
	}
	return toSessionDomain(row), nil
}

// Delete removes a session; its errors and batch markers go with it through
// ON DELETE CASCADE.
func (r *ImportSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if !validID(sessionID) {
		return domain.ErrSessionNotFound
	}

	res := r.db.WithContext(ctx).Delete(&models.ImportSession{}, "id = ?", sessionID)
	if res.Error != nil {
		return fmt.Errorf("delete import session: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *ImportSessionRepository) ListErrors(ctx context.Context, sessionID string, limit, offset int) ([]domain.ImportError, error) {
	if !validID(sessionID) {
		return nil, nil
	}

	var rows []models.ImportError
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("row_number ASC, created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list import errors: %w", classify(err))
	}

	out := make([]domain.ImportError, 0, len(rows))
	for _, row := range rows {
		e := domain.ImportError{
			ID:           row.ID,
			SessionID:    row.SessionID,
			RowNumber:    row.RowNumber,
			ErrorType:    domain.ErrorKind(row.ErrorType),
			ErrorMessage: row.ErrorMessage,
			RawData:      row.RawData.Data(),
			CreatedAt:    row.CreatedAt,
		}
		if row.FieldName != nil {
			e.FieldName = *row.FieldName
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *ImportSessionRepository) CountErrors(ctx context.Context, sessionID string) (domain.ErrorCounts, error) {
	var counts domain.ErrorCounts
	if !validID(sessionID) {
		return counts, nil
	}

	var rows []struct {
		ErrorType string
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ImportError{}).
		Select("error_type, COUNT(*) AS total").
		Where("session_id = ?", sessionID).
		Group("error_type").
		Scan(&rows).Error
	if err != nil {
		return counts, fmt.Errorf("count import errors: %w", classify(err))
	}

	for _, row := range rows {
		switch domain.ErrorKind(row.ErrorType) {
		case domain.ErrorKindValidation:
			counts.Validation = row.Total
		case domain.ErrorKindDuplicate:
			counts.Duplicate = row.Total
		case domain.ErrorKindProcessing:
			counts.Processing = row.Total
		}
	}
	return counts, nil
}

func toSessionModel(s domain.ImportSession) models.ImportSession {
	mapping := map[string]string(s.FieldMapping)
	if mapping == nil {
		mapping = map[string]string{}
	}
	row := models.ImportSession{
		ID:                s.ID,
		WorkspaceID:       s.WorkspaceID,
		ImportType:        string(s.ImportType),
		Filename:          s.Filename,
		TotalRecords:      s.TotalRecords,
		ProcessedRecords:  s.ProcessedRecords,
		SuccessfulRecords: s.SuccessfulRecords,
		FailedRecords:     s.FailedRecords,
		Status:            string(s.Status),
		ImportMode:        string(s.ImportMode),
		DuplicateField:    s.DuplicateField,
		FieldMapping:      datatypes.NewJSONType(mapping),
		CreatedBy:         s.CreatedBy,
		CompletedAt:       s.CompletedAt,
	}
	if s.ErrorLog != "" {
		row.ErrorLog = &s.ErrorLog
	}
	return row
}

func toSessionDomain(row models.ImportSession) domain.ImportSession {
	s := domain.ImportSession{
		ID:                row.ID,
		WorkspaceID:       row.WorkspaceID,
		ImportType:        domain.ImportType(row.ImportType),
		Filename:          row.Filename,
		TotalRecords:      row.TotalRecords,
		ProcessedRecords:  row.ProcessedRecords,
		SuccessfulRecords: row.SuccessfulRecords,
		FailedRecords:     row.FailedRecords,
		Status:            domain.SessionStatus(row.Status),
		ImportMode:        domain.ImportMode(row.ImportMode),
		DuplicateField:    row.DuplicateField,
		FieldMapping:      domain.FieldMapping(row.FieldMapping.Data()),
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		CompletedAt:       row.CompletedAt,
	}
	if row.ErrorLog != nil {
		s.ErrorLog = *row.ErrorLog
	}
	return s
}

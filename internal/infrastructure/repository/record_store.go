package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/db/models"
)

const fullNameExpr = "TRIM(first_name || ' ' || last_name)"

// RecordStore reads and writes the CRM records targeted by imports. Every
// query is scoped to one workspace.
type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) FindByField(ctx context.Context, t domain.ImportType, workspaceID, column string, caseInsensitive bool, values []string) ([]domain.ExistingRecord, error) {
	if len(values) == 0 {
		return nil, nil
	}
	model, err := modelFor(t)
	if err != nil {
		return nil, err
	}
	expr, err := searchExpr(t, column)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Model(model).
		Select("id::text AS id, CAST("+expr+" AS TEXT) AS value").
		Where("workspace_id = ?", workspaceID)
	if caseInsensitive {
		lowered := make([]string, 0, len(values))
		for _, v := range values {
			lowered = append(lowered, strings.ToLower(v))
		}
		q = q.Where("LOWER("+expr+") IN ?", lowered)
	} else {
		q = q.Where(expr+" IN ?", values)
	}

	var rows []struct {
		ID    string
		Value string
	}
	if err := q.Order("created_at ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", t, column, classify(err))
	}

	out := make([]domain.ExistingRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ExistingRecord{ID: row.ID, Value: row.Value})
	}
	return out, nil
}

func (s *RecordStore) Create(ctx context.Context, workspaceID, createdBy string, record domain.Record) (string, error) {
	id := uuid.NewString()

	var row any
	switch r := record.(type) {
	case domain.ContactRow:
		row = &models.Contact{
			ID:          id,
			WorkspaceID: workspaceID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Email:       r.Email,
			Phone:       r.Phone,
			Title:       r.Title,
			BusinessID:  r.BusinessID,
			Address:     r.Address,
			City:        r.City,
			State:       r.State,
			ZipCode:     r.ZipCode,
			ContactType: r.ContactType,
			Notes:       r.Notes,
			CreatedBy:   createdBy,
		}
	case domain.BusinessRow:
		row = &models.Business{
			ID:            id,
			WorkspaceID:   workspaceID,
			Name:          r.Name,
			Email:         r.Email,
			Phone:         r.Phone,
			Website:       r.Website,
			Industry:      r.Industry,
			Address:       r.Address,
			City:          r.City,
			State:         r.State,
			ZipCode:       r.ZipCode,
			EmployeeCount: r.EmployeeCount,
			Notes:         r.Notes,
			CreatedBy:     createdBy,
		}
	case domain.DonationRow:
		row = &models.Donation{
			ID:            id,
			WorkspaceID:   workspaceID,
			ContactID:     r.ContactID,
			Amount:        r.Amount,
			DonatedAt:     r.Date,
			Method:        r.Method,
			Campaign:      r.Campaign,
			ReceiptNumber: r.ReceiptNumber,
			Notes:         r.Notes,
			CreatedBy:     createdBy,
		}
	default:
		return "", fmt.Errorf("unsupported record %T", record)
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("create %s: %w", record.Type(), classify(err))
	}
	return id, nil
}

// Update overwrites only the columns the row provided; fields left empty in
// the import keep their stored values.
func (s *RecordStore) Update(ctx context.Context, workspaceID, recordID string, record domain.Record) error {
	if !validID(recordID) {
		return domain.ErrRecordNotFound
	}
	model, err := modelFor(record.Type())
	if err != nil {
		return err
	}

	columns := record.Columns()
	if len(columns) == 0 {
		return nil
	}
	columns["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND workspace_id = ?", recordID, workspaceID).
		Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", record.Type(), classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func modelFor(t domain.ImportType) (any, error) {
	switch t {
	case domain.ImportTypeContacts:
		return &models.Contact{}, nil
	case domain.ImportTypeBusinesses:
		return &models.Business{}, nil
	case domain.ImportTypeDonations:
		return &models.Donation{}, nil
	}
	return nil, fmt.Errorf("unsupported import type %q", t)
}

// searchExpr only admits columns declared in the import configuration, since
// the column name is interpolated into SQL.
func searchExpr(t domain.ImportType, column string) (string, error) {
	if column == "full_name" && t == domain.ImportTypeContacts {
		return fullNameExpr, nil
	}
	cfg, ok := domain.ConfigFor(t)
	if !ok {
		return "", fmt.Errorf("unsupported import type %q", t)
	}
	for _, field := range cfg.Fields {
		if field.Column == column {
			return column, nil
		}
	}
	return "", fmt.Errorf("column %q is not searchable on %s", column, t)
}

package importing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

type ValidateDataInput struct {
	ImportType     string
	FieldMapping   map[string]string
	DuplicateField string
	Rows           []RawRow
	StartIndex     int64
}

type ValidateDataOutput struct {
	TotalRows    int               `json:"totalRows"`
	ValidCount   int               `json:"validCount"`
	InvalidCount int               `json:"invalidCount"`
	Errors       []FieldError      `json:"errors"`
	Duplicates   []InFileDuplicate `json:"duplicates"`
}

type CheckDuplicatesInput struct {
	WorkspaceID    string
	ImportType     string
	FieldMapping   map[string]string
	DuplicateField string
	Rows           []RawRow
	StartIndex     int64
}

type DuplicateOutput struct {
	RowNumber int64             `json:"rowNumber"`
	Value     string            `json:"value"`
	RecordIDs []string          `json:"recordIds"`
	Data      map[string]string `json:"data"`
}

// ValidateData runs the validator without touching any session, so clients can
// preview problems before starting an import.
func (s *importService) ValidateData(ctx context.Context, in ValidateDataInput) (ValidateDataOutput, error) {
	cfg, ok := domain.ConfigFor(domain.ImportType(strings.TrimSpace(in.ImportType)))
	if !ok {
		return ValidateDataOutput{}, fmt.Errorf("%w: %q", ErrUnsupportedImportType, in.ImportType)
	}
	mapping, err := checkFieldMapping(cfg, in.FieldMapping)
	if err != nil {
		return ValidateDataOutput{}, err
	}
	if in.DuplicateField != "" {
		if _, ok := cfg.DuplicateCandidate(in.DuplicateField); !ok {
			return ValidateDataOutput{}, fmt.Errorf("%w: %q", ErrInvalidDuplicateField, in.DuplicateField)
		}
	}
	if in.StartIndex < 0 {
		return ValidateDataOutput{}, ErrInvalidStartIndex
	}

	result := s.validator.Validate(in.Rows, in.StartIndex, cfg, mapping, in.DuplicateField)
	out := ValidateDataOutput{
		TotalRows:    len(in.Rows),
		ValidCount:   len(result.ValidRows),
		InvalidCount: len(result.InvalidRows),
		Errors:       []FieldError{},
		Duplicates:   result.Duplicates,
	}
	for _, invalid := range result.InvalidRows {
		out.Errors = append(out.Errors, invalid.Errors...)
	}
	if out.Duplicates == nil {
		out.Duplicates = []InFileDuplicate{}
	}
	return out, nil
}

func (s *importService) CheckDuplicates(ctx context.Context, in CheckDuplicatesInput) ([]DuplicateOutput, error) {
	if strings.TrimSpace(in.WorkspaceID) == "" {
		return nil, ErrInvalidWorkspace
	}
	importType := domain.ImportType(strings.TrimSpace(in.ImportType))
	cfg, ok := domain.ConfigFor(importType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImportType, in.ImportType)
	}
	if in.StartIndex < 0 {
		return nil, ErrInvalidStartIndex
	}

	rows := make([]MappedRow, 0, len(in.Rows))
	for i, raw := range in.Rows {
		rows = append(rows, MapRow(raw, in.StartIndex+int64(i)+1, cfg, in.FieldMapping))
	}

	matches, err := s.detector.FindDuplicates(ctx, importType, rows, in.WorkspaceID, in.DuplicateField)
	if err != nil {
		if errors.Is(err, ErrInvalidDuplicateField) {
			return nil, err
		}
		return nil, s.storeError(ErrCheckDuplicates, err)
	}

	out := make([]DuplicateOutput, 0, len(matches))
	for _, m := range matches {
		ids := make([]string, 0, len(m.Duplicates))
		for _, d := range m.Duplicates {
			ids = append(ids, d.ID)
		}
		out = append(out, DuplicateOutput{RowNumber: m.RowNumber, Value: m.Value, RecordIDs: ids, Data: m.Row.Raw})
	}
	return out, nil
}

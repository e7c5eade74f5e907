package importing

import (
	"context"
	"fmt"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

const duplicateLookupChunk = 500

type DuplicateMatch struct {
	Row        MappedRow
	RowNumber  int64
	Value      string
	Duplicates []domain.ExistingRecord
}

// DuplicateDetector flags rows whose duplicate field matches records that
// already exist in the workspace. It never writes.
type DuplicateDetector struct {
	records domain.RecordStore
}

func NewDuplicateDetector(records domain.RecordStore) *DuplicateDetector {
	return &DuplicateDetector{records: records}
}

func (d *DuplicateDetector) FindDuplicates(ctx context.Context, importType domain.ImportType, rows []MappedRow, workspaceID, duplicateField string) ([]DuplicateMatch, error) {
	cfg, ok := domain.ConfigFor(importType)
	if !ok {
		return nil, ErrUnsupportedImportType
	}
	candidate, ok := cfg.DuplicateCandidate(duplicateField)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuplicateField, duplicateField)
	}
	field, _ := cfg.Field(candidate.Field)

	values := make([]string, 0, len(rows))
	seen := map[string]struct{}{}
	for _, row := range rows {
		value := row.Values[candidate.Field]
		if value == "" {
			continue
		}
		key := normalizeDuplicateValue(value, candidate.CaseInsensitive)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, nil
	}

	existing := map[string][]domain.ExistingRecord{}
	for start := 0; start < len(values); start += duplicateLookupChunk {
		end := min(start+duplicateLookupChunk, len(values))
		found, err := d.records.FindByField(ctx, importType, workspaceID, field.Column, candidate.CaseInsensitive, values[start:end])
		if err != nil {
			return nil, fmt.Errorf("find existing %s by %s: %w", importType, candidate.Field, err)
		}
		for _, record := range found {
			key := normalizeDuplicateValue(record.Value, candidate.CaseInsensitive)
			existing[key] = append(existing[key], record)
		}
	}

	var matches []DuplicateMatch
	for _, row := range rows {
		value := row.Values[candidate.Field]
		if value == "" {
			continue
		}
		found := existing[normalizeDuplicateValue(value, candidate.CaseInsensitive)]
		if len(found) == 0 {
			continue
		}
		matches = append(matches, DuplicateMatch{
			Row:        row,
			RowNumber:  row.RowNumber,
			Value:      value,
			Duplicates: found,
		})
	}
	return matches, nil
}

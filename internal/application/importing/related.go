package importing

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

// relatedResolver looks up or creates the records a row references. It caches
// results for the lifetime of one batch so a donor named on several rows is
// created once.
type relatedResolver struct {
	records     domain.RecordStore
	workspaceID string
	createdBy   string
	cache       map[string]string
}

func newRelatedResolver(records domain.RecordStore, workspaceID, createdBy string) *relatedResolver {
	return &relatedResolver{
		records:     records,
		workspaceID: workspaceID,
		createdBy:   createdBy,
		cache:       map[string]string{},
	}
}

func (r *relatedResolver) Resolve(ctx context.Context, cfg domain.ImportConfig, values map[string]string) (map[domain.ImportType]string, error) {
	resolved := map[domain.ImportType]string{}
	for _, rel := range cfg.RelatedEntities {
		id, err := r.resolveOne(ctx, rel, values)
		if err != nil {
			return nil, err
		}
		if id != "" {
			resolved[rel.TargetType] = id
		}
	}
	return resolved, nil
}

func (r *relatedResolver) resolveOne(ctx context.Context, rel domain.RelatedEntityConfig, values map[string]string) (string, error) {
	target, ok := domain.ConfigFor(rel.TargetType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImportType, rel.TargetType)
	}

	provided := false
	var cacheKeys []string
	for i, source := range rel.SourceFields {
		value := values[source]
		if value == "" || i >= len(rel.SearchFields) {
			continue
		}
		provided = true

		column, caseInsensitive := searchColumn(target, rel.SearchFields[i])
		key := string(rel.TargetType) + "|" + column + "|" + normalizeDuplicateValue(value, caseInsensitive)
		if id, hit := r.cache[key]; hit {
			return id, nil
		}
		cacheKeys = append(cacheKeys, key)

		found, err := r.records.FindByField(ctx, rel.TargetType, r.workspaceID, column, caseInsensitive, []string{value})
		if err != nil {
			return "", fmt.Errorf("look up %s by %s: %w", rel.TargetType, rel.SearchFields[i], err)
		}
		if len(found) > 0 {
			r.remember(cacheKeys, found[0].ID)
			return found[0].ID, nil
		}
	}
	if !provided {
		return "", nil
	}

	if !rel.CreateIfNotFound {
		return "", fmt.Errorf("%w: no %s matches %s", ErrRelatedNotFound, rel.TargetType, describeSources(rel, values))
	}

	record, err := domain.NewRecord(rel.TargetType, minimalValues(rel, values), nil)
	if err != nil {
		return "", fmt.Errorf("build related %s: %w", rel.TargetType, err)
	}
	id, err := r.records.Create(ctx, r.workspaceID, r.createdBy, record)
	if err != nil {
		return "", fmt.Errorf("create related %s: %w", rel.TargetType, err)
	}
	r.remember(cacheKeys, id)
	return id, nil
}

func (r *relatedResolver) remember(keys []string, id string) {
	for _, key := range keys {
		r.cache[key] = id
	}
}

func searchColumn(target domain.ImportConfig, searchField string) (string, bool) {
	if searchField == domain.FullNameSearchField {
		return "full_name", true
	}
	field, _ := target.Field(searchField)
	candidate, ok := target.DuplicateCandidate(searchField)
	return field.Column, ok && candidate.CaseInsensitive
}

// minimalValues builds the smallest valid set of target fields from the
// referencing row.
func minimalValues(rel domain.RelatedEntityConfig, values map[string]string) map[string]string {
	out := map[string]string{}
	for i, source := range rel.SourceFields {
		value := values[source]
		if value == "" || i >= len(rel.SearchFields) {
			continue
		}
		search := rel.SearchFields[i]
		if search == domain.FullNameSearchField {
			first, last := domain.SplitFullName(value)
			out["firstName"] = first
			out["lastName"] = last
			continue
		}
		out[search] = value
	}
	if rel.TargetType == domain.ImportTypeContacts && out["firstName"] == "" {
		if email := out["emails"]; email != "" {
			out["firstName"] = strings.SplitN(email, "@", 2)[0]
		}
	}
	return out
}

func describeSources(rel domain.RelatedEntityConfig, values map[string]string) string {
	parts := make([]string, 0, len(rel.SourceFields))
	for _, source := range rel.SourceFields {
		if v := values[source]; v != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", source, v))
		}
	}
	return strings.Join(parts, ", ")
}

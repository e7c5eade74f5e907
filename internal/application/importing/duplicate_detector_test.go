package importing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

type countingRecordStore struct {
	*fakeRecordStore
	calls    int
	maxBatch int
}

func (c *countingRecordStore) FindByField(ctx context.Context, t domain.ImportType, workspaceID, column string, caseInsensitive bool, values []string) ([]domain.ExistingRecord, error) {
	c.calls++
	c.maxBatch = max(c.maxBatch, len(values))
	return c.fakeRecordStore.FindByField(ctx, t, workspaceID, column, caseInsensitive, values)
}

func TestFindDuplicatesMatchesWorkspaceRecords(t *testing.T) {
	t.Parallel()
	records := &fakeRecordStore{}
	first := records.seed(domain.ImportTypeBusinesses, "ws-1", map[string]any{"name": "Acme", "website": "https://acme.example"})
	second := records.seed(domain.ImportTypeBusinesses, "ws-1", map[string]any{"name": "Other", "website": "HTTPS://ACME.EXAMPLE"})
	records.seed(domain.ImportTypeBusinesses, "ws-2", map[string]any{"name": "Acme", "website": "https://acme.example"})

	rows := []app.MappedRow{
		{RowNumber: 1, Values: map[string]string{"website": "https://Acme.example"}},
		{RowNumber: 2, Values: map[string]string{"website": "https://new.example"}},
		{RowNumber: 3, Values: map[string]string{}},
	}

	matches, err := app.NewDuplicateDetector(records).FindDuplicates(context.Background(), domain.ImportTypeBusinesses, rows, "ws-1", "website")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.EqualValues(t, 1, matches[0].RowNumber)
	ids := []string{matches[0].Duplicates[0].ID, matches[0].Duplicates[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
}

func TestFindDuplicatesCaseSensitiveField(t *testing.T) {
	t.Parallel()
	records := &fakeRecordStore{}
	records.seed(domain.ImportTypeDonations, "ws-1", map[string]any{"receipt_number": "R-1"})

	rows := []app.MappedRow{
		{RowNumber: 1, Values: map[string]string{"receiptNumber": "r-1"}},
		{RowNumber: 2, Values: map[string]string{"receiptNumber": "R-1"}},
	}
	matches, err := app.NewDuplicateDetector(records).FindDuplicates(context.Background(), domain.ImportTypeDonations, rows, "ws-1", "receiptNumber")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.EqualValues(t, 2, matches[0].RowNumber)
}

func TestFindDuplicatesChunksLookups(t *testing.T) {
	t.Parallel()
	store := &countingRecordStore{fakeRecordStore: &fakeRecordStore{}}

	rows := make([]app.MappedRow, 0, 1201)
	for i := 0; i < 1200; i++ {
		rows = append(rows, app.MappedRow{RowNumber: int64(i + 1), Values: map[string]string{"receiptNumber": fmt.Sprintf("R-%d", i)}})
	}
	rows = append(rows, app.MappedRow{RowNumber: 1201, Values: map[string]string{"receiptNumber": "R-0"}})

	_, err := app.NewDuplicateDetector(store).FindDuplicates(context.Background(), domain.ImportTypeDonations, rows, "ws-1", "receiptNumber")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 500, store.maxBatch)
}

func TestFindDuplicatesRejectsUnknownField(t *testing.T) {
	t.Parallel()
	_, err := app.NewDuplicateDetector(&fakeRecordStore{}).FindDuplicates(context.Background(), domain.ImportTypeContacts, nil, "ws-1", "title")
	assert.ErrorIs(t, err, app.ErrInvalidDuplicateField)
}

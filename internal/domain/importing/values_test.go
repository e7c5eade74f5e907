package importing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func TestWholeNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"120", 120, true},
		{"1,200", 1200, true},
		{"12.0", 12, true},
		{"12.7", 0, false},
		{"1e30", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tc := range cases {
		n, err := domain.ParseNumber(tc.in)
		require.NoError(t, err, tc.in)
		got, err := domain.WholeNumber(n)
		if !tc.ok {
			assert.ErrorIs(t, err, domain.ErrNotWhole, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	got, err := domain.WholeNumber(decimal.NewFromInt(-5))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got)
}

func TestNewRecordRejectsFractionalEmployeeCount(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"12.7", "1e30"} {
		_, err := domain.NewRecord(domain.ImportTypeBusinesses, map[string]string{"name": "Acme", "employeeCount": raw}, nil)
		assert.ErrorIs(t, err, domain.ErrNotWhole, raw)
	}

	record, err := domain.NewRecord(domain.ImportTypeBusinesses, map[string]string{"name": "Acme", "employeeCount": "42"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), record.Columns()["employee_count"])
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func TestSearchExpr(t *testing.T) {
	t.Parallel()

	expr, err := searchExpr(domain.ImportTypeContacts, "full_name")
	require.NoError(t, err)
	assert.Equal(t, fullNameExpr, expr)

	expr, err = searchExpr(domain.ImportTypeBusinesses, "website")
	require.NoError(t, err)
	assert.Equal(t, "website", expr)

	_, err = searchExpr(domain.ImportTypeBusinesses, "full_name")
	assert.Error(t, err)
	_, err = searchExpr(domain.ImportTypeContacts, "email; DROP TABLE contacts")
	assert.Error(t, err)
}

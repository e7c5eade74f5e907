package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func TestParseMapping(t *testing.T) {
	t.Parallel()

	got, err := parseMapping([]string{"First Name=firstName", " Last = lastName "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"First Name": "firstName", "Last": "lastName"}, got)

	got, err = parseMapping(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseMapping([]string{"First Name"})
	assert.Error(t, err)
	_, err = parseMapping([]string{"=firstName"})
	assert.Error(t, err)
}

func TestWriteTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := writeTemplate(app.NewTemplateService(), domain.ImportTypeContacts, "csv", dir, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contacts_import_template.csv"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "firstName,lastName,"))

	path, err = writeTemplate(app.NewTemplateService(), domain.ImportTypeDonations, "xlsx", dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "donations_import_template.xlsx"), path)

	_, err = writeTemplate(app.NewTemplateService(), domain.ImportTypeContacts, "pdf", dir, false)
	assert.Error(t, err)
	_, err = writeTemplate(app.NewTemplateService(), domain.ImportType("invoices"), "csv", dir, false)
	assert.ErrorIs(t, err, app.ErrUnsupportedImportType)
}

func TestRootCommandWiresSubcommands(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"file", "template", "migrate"})
}

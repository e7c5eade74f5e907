package importing_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func TestGenerateCSVTemplateOrdersRequiredFirst(t *testing.T) {
	t.Parallel()
	svc := app.NewTemplateService()

	for _, cfg := range domain.AllConfigs() {
		tpl, err := svc.GenerateCSVTemplate(cfg.Type)
		require.NoError(t, err)

		want := append(cfg.RequiredFields(), cfg.OptionalFields()...)
		assert.Equal(t, want, tpl.Headers, cfg.Type)
		require.Len(t, tpl.SampleData, 1)
		assert.Len(t, tpl.SampleData[0], len(tpl.Headers))
		assert.Equal(t, string(cfg.Type)+"_import_template.csv", tpl.Filename)
	}

	tpl, err := svc.GenerateCSVTemplate(domain.ImportTypeDonations)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "date"}, tpl.Headers[:2])

	_, err = svc.GenerateCSVTemplate("invoices")
	assert.ErrorIs(t, err, app.ErrUnsupportedImportType)
}

func TestRenderCSVTemplateParsesBack(t *testing.T) {
	t.Parallel()
	svc := app.NewTemplateService()

	tpl, err := svc.GenerateCSVTemplateWithInstructions(domain.ImportTypeContacts)
	require.NoError(t, err)
	require.NotEmpty(t, tpl.Instructions)

	body, err := svc.RenderCSV(tpl)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# contactType (optional)")

	parsed, err := app.ParseCSV(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, tpl.Headers, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "John", parsed.Rows[0]["firstName"])
}

func TestRenderXLSXTemplate(t *testing.T) {
	t.Parallel()
	svc := app.NewTemplateService()

	tpl, err := svc.GenerateCSVTemplateWithInstructions(domain.ImportTypeBusinesses)
	require.NoError(t, err)

	body, err := svc.RenderXLSX(tpl)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(app.XLSXFilename(tpl), ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Import")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tpl.Headers, rows[0])

	notes, err := f.GetRows("Instructions")
	require.NoError(t, err)
	assert.Len(t, notes, len(tpl.Instructions))
}

package importing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func contactsConfig(t *testing.T) domain.ImportConfig {
	t.Helper()
	cfg, ok := domain.ConfigFor(domain.ImportTypeContacts)
	require.True(t, ok)
	return cfg
}

func TestMapRowFirstNonEmptyColumnWins(t *testing.T) {
	t.Parallel()
	cfg := contactsConfig(t)

	row := app.MapRow(
		app.RawRow{"A Email": "", "B Email": " b@example.com ", "C Email": "c@example.com", "Fax": "123"},
		7, cfg,
		domain.FieldMapping{"A Email": "emails", "B Email": "emails", "C Email": "emails", "Fax": "fax"},
	)

	assert.EqualValues(t, 7, row.RowNumber)
	assert.Equal(t, map[string]string{"emails": "b@example.com"}, row.Values)
	assert.Equal(t, "123", row.Raw["Fax"])
}

func TestValidatorFieldRules(t *testing.T) {
	t.Parallel()
	cfg := contactsConfig(t)
	mapping := domain.FieldMapping{
		"First": "firstName", "Last": "lastName", "Email": "emails",
		"Phone": "phones", "Type": "contactType",
	}

	result := app.NewValidator().Validate([]app.RawRow{
		{"First": "Ann", "Last": "Lee", "Email": "ann@example.com", "Phone": "+1 (555) 123-4567", "Type": "Donor"},
		{"First": "Bob", "Last": "Ray", "Phone": "12"},
		{"First": "Cy", "Last": "Ode", "Type": "robot"},
		{"First": " ", "Last": "", "Email": "missing-at.example.com"},
	}, 0, cfg, mapping, "")

	require.Len(t, result.ValidRows, 1)
	assert.EqualValues(t, 1, result.ValidRows[0].RowNumber)
	require.Len(t, result.InvalidRows, 3)

	phone := result.InvalidRows[0].Errors
	require.Len(t, phone, 1)
	assert.Equal(t, "phones", phone[0].FieldName)
	assert.Equal(t, `Invalid phone number for Phone: "12"`, phone[0].ErrorMessage)

	enum := result.InvalidRows[1].Errors
	require.Len(t, enum, 1)
	assert.Equal(t, "Contact Type must be one of: individual, volunteer, donor, member, other", enum[0].ErrorMessage)

	missing := result.InvalidRows[2].Errors
	require.Len(t, missing, 3)
	assert.Equal(t, "First Name is required", missing[0].ErrorMessage)
	assert.Equal(t, "Last Name is required", missing[1].ErrorMessage)
	assert.Equal(t, "emails", missing[2].FieldName)
	for _, e := range missing {
		assert.EqualValues(t, 4, e.RowNumber)
		assert.Equal(t, domain.ErrorKindValidation, e.ErrorType)
	}
}

func TestValidatorNumberBounds(t *testing.T) {
	t.Parallel()
	cfg, ok := domain.ConfigFor(domain.ImportTypeBusinesses)
	require.True(t, ok)
	mapping := domain.FieldMapping{"Name": "name", "Staff": "employeeCount"}

	result := app.NewValidator().Validate([]app.RawRow{
		{"Name": "Acme", "Staff": "1,200"},
		{"Name": "Tiny", "Staff": "-3"},
		{"Name": "Odd", "Staff": "many"},
	}, 0, cfg, mapping, "")

	require.Len(t, result.ValidRows, 1)
	require.Len(t, result.InvalidRows, 2)
	assert.Equal(t, "Employees must be at least 0", result.InvalidRows[0].Errors[0].ErrorMessage)
	assert.Equal(t, "Employees must be a number", result.InvalidRows[1].Errors[0].ErrorMessage)
}

func TestValidatorEmployeeCountMustBeWhole(t *testing.T) {
	t.Parallel()
	cfg, ok := domain.ConfigFor(domain.ImportTypeBusinesses)
	require.True(t, ok)
	mapping := domain.FieldMapping{"Name": "name", "Staff": "employeeCount"}

	result := app.NewValidator().Validate([]app.RawRow{
		{"Name": "Acme", "Staff": "12"},
		{"Name": "Half", "Staff": "12.7"},
		{"Name": "Huge", "Staff": "1e30"},
	}, 0, cfg, mapping, "")

	require.Len(t, result.ValidRows, 1)
	require.Len(t, result.InvalidRows, 2)
	for _, invalid := range result.InvalidRows {
		require.Len(t, invalid.Errors, 1)
		assert.Equal(t, "Employees must be a whole number", invalid.Errors[0].ErrorMessage)
	}
}

func TestValidatorInFileDuplicates(t *testing.T) {
	t.Parallel()
	cfg := contactsConfig(t)
	mapping := domain.FieldMapping{"First": "firstName", "Last": "lastName", "Phone": "phones"}

	result := app.NewValidator().Validate([]app.RawRow{
		{"First": "A", "Last": "A", "Phone": "5551234567"},
		{"First": "B", "Last": "B", "Phone": "5559999999"},
		{"First": "C", "Last": "C", "Phone": "5551234567"},
		{"First": "D", "Last": "D", "Phone": ""},
	}, 5, cfg, mapping, "phones")

	assert.Len(t, result.ValidRows, 4)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, app.InFileDuplicate{RowNumber: 8, FirstRowNumber: 6, Field: "phones", Value: "5551234567"}, result.Duplicates[0])
}

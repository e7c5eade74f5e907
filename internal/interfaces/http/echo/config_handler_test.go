package echo_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	httpecho "github.com/mohammadpnp/crm-import/internal/interfaces/http/echo"
)

func getAuthorized(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(httpecho.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestConfigHandlerAllConfigs(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := getAuthorized(t, e, "/api/v1/import/config")

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []struct {
			Type           string   `json:"type"`
			RequiredFields []string `json:"requiredFields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 3)
	for _, cfg := range env.Data {
		assert.NotEmpty(t, cfg.RequiredFields, cfg.Type)
	}
}

func TestConfigHandlerSingleConfig(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := getAuthorized(t, e, "/api/v1/import/config?type=contacts")

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data struct {
			Type           string   `json:"type"`
			RequiredFields []string `json:"requiredFields"`
			OptionalFields []string `json:"optionalFields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "contacts", env.Data.Type)
	assert.Contains(t, env.Data.OptionalFields, "emails")
}

func TestConfigHandlerUnknownType(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := getAuthorized(t, e, "/api/v1/import/config?type=invoices")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported_import_type")
}

func TestTemplateHandlerCSV(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := getAuthorized(t, e, "/api/v1/import/template?type=businesses&instructions=true")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "businesses_import_template.csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")

	r := csv.NewReader(bytes.NewReader(rec.Body.Bytes()))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)
	assert.Equal(t, "name", records[0][0])
	assert.Contains(t, rec.Body.String(), "\n# ")
}

func TestTemplateHandlerXLSX(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := getAuthorized(t, e, "/api/v1/import/template?type=donations&format=xlsx")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "donations_import_template.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Import")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Contains(t, rows[0], "amount")
}

func TestTemplateHandlerBadInput(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})

	rec := getAuthorized(t, e, "/api/v1/import/template?type=contacts&format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getAuthorized(t, e, "/api/v1/import/template?type=contacts&instructions=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getAuthorized(t, e, "/api/v1/import/template?type=invoices")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	e = newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{err: errors.New("dial tcp: refused")})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	t.Parallel()

	e := newTestServer(newFakeImportService(), &fakeAuthorizer{}, fakePinger{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

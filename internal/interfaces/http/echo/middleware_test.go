package echo_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	httpecho "github.com/mohammadpnp/crm-import/internal/interfaces/http/echo"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

func TestRequestLoggerTagsRequest(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := logging.New("info", "json", &out)

	e := echo.New()
	e.HTTPErrorHandler = httpecho.ErrorHandler
	e.Use(httpecho.RequestLogger(logger))
	e.GET("/ping", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside handler")
		return c.NoContent(http.StatusNoContent)
	}, httpecho.Authenticate())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	req.Header.Set(httpecho.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	logs := out.String()
	assert.Contains(t, logs, `"request_id":"req-42"`)
	assert.Contains(t, logs, `"principal":"user-1"`)
	assert.Contains(t, logs, "inside handler")
	assert.Contains(t, logs, "request served")
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	e := echo.New()
	e.Use(httpecho.RequestLogger(logger))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

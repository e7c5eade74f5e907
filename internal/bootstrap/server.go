package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	httpecho "github.com/mohammadpnp/crm-import/internal/interfaces/http/echo"
)

func NewHTTPServer(a *App) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Validator = httpecho.NewRequestValidator()
	server.HTTPErrorHandler = httpecho.ErrorHandler

	server.Use(middleware.Recover())
	server.Use(httpecho.RequestLogger(a.Logger))
	server.Use(middleware.BodyLimit(a.Config.BodyLimit))

	importHandler := httpecho.NewImportHandler(a.Service, a.Authorizer)
	configHandler := httpecho.NewConfigHandler(app.NewTemplateService())
	healthHandler := httpecho.NewHealthHandler(a.Pool)

	httpecho.RegisterRoutes(server, importHandler, configHandler, healthHandler)
	server.GET(a.Config.MetricsPath, echo.WrapHandler(promhttp.Handler()))

	return server
}

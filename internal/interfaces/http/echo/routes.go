package echo

import "github.com/labstack/echo/v4"

func RegisterRoutes(server *echo.Echo, importHandler *ImportHandler, configHandler *ConfigHandler, healthHandler *HealthHandler) {
	server.GET("/healthz", healthHandler.Check)

	api := server.Group("/api/v1/import", Authenticate())
	api.POST("", importHandler.Handle)
	api.GET("/config", configHandler.GetConfig)
	api.GET("/template", configHandler.GetTemplate)
}

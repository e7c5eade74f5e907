package echo

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ConfigHandler struct {
	templates *app.TemplateService
}

func NewConfigHandler(templates *app.TemplateService) *ConfigHandler {
	return &ConfigHandler{templates: templates}
}

type importConfigView struct {
	domain.ImportConfig
	RequiredFields []string `json:"requiredFields"`
	OptionalFields []string `json:"optionalFields"`
}

func newImportConfigView(cfg domain.ImportConfig) importConfigView {
	return importConfigView{
		ImportConfig:   cfg,
		RequiredFields: cfg.RequiredFields(),
		OptionalFields: cfg.OptionalFields(),
	}
}

// GetConfig serves one import configuration when type is given, all otherwise.
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	importType := strings.TrimSpace(c.QueryParam("type"))
	if importType == "" {
		configs := domain.AllConfigs()
		views := make([]importConfigView, 0, len(configs))
		for _, cfg := range configs {
			views = append(views, newImportConfigView(cfg))
		}
		return c.JSON(http.StatusOK, apiResponse{Data: views})
	}

	cfg, ok := domain.ConfigFor(domain.ImportType(importType))
	if !ok {
		return writeError(c, fmt.Errorf("%w: %q", app.ErrUnsupportedImportType, importType))
	}
	return c.JSON(http.StatusOK, apiResponse{Data: newImportConfigView(cfg)})
}

// GetTemplate streams a CSV or XLSX template as an attachment.
func (h *ConfigHandler) GetTemplate(c echo.Context) error {
	importType := domain.ImportType(strings.TrimSpace(c.QueryParam("type")))

	withInstructions := false
	if raw := c.QueryParam("instructions"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid_request", "instructions must be true or false")
		}
		withInstructions = parsed
	}

	generate := h.templates.GenerateCSVTemplate
	if withInstructions {
		generate = h.templates.GenerateCSVTemplateWithInstructions
	}
	tpl, err := generate(importType)
	if err != nil {
		return writeError(c, err)
	}

	switch format := strings.ToLower(c.QueryParam("format")); format {
	case "", "csv":
		body, err := h.templates.RenderCSV(tpl)
		if err != nil {
			return writeError(c, err)
		}
		return attachment(c, tpl.Filename, "text/csv; charset=utf-8", body)
	case "xlsx":
		body, err := h.templates.RenderXLSX(tpl)
		if err != nil {
			return writeError(c, err)
		}
		return attachment(c, app.XLSXFilename(tpl), mimeXLSX, body)
	default:
		return badRequest(c, "invalid_request", fmt.Sprintf("unsupported template format %q", format))
	}
}

func attachment(c echo.Context, filename, contentType string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, body)
}

package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

var (
	errUnauthenticated = errors.New("missing authenticated principal")
	errForbidden       = errors.New("access to workspace denied")
	errUnknownAction   = errors.New("unknown action")
	errMalformedBody   = errors.New("malformed request body")
	errInvalidRequest  = errors.New("invalid request")
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match decides the response.
var errorMappings = []errorMapping{
	{errUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{errForbidden, http.StatusForbidden, "forbidden"},
	{errUnknownAction, http.StatusBadRequest, "unknown_action"},
	{errMalformedBody, http.StatusBadRequest, "bad_request"},
	{errInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{app.ErrSessionNotFound, http.StatusNotFound, "not_found"},
	{app.ErrSessionCancelled, http.StatusConflict, "session_cancelled"},
	{app.ErrSessionClosed, http.StatusConflict, "session_closed"},
	{app.ErrSessionBusy, http.StatusConflict, "session_busy"},
	{app.ErrBatchConflict, http.StatusConflict, "batch_conflict"},
	{app.ErrBatchOverlap, http.StatusConflict, "batch_overlap"},
	{app.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{app.ErrImportFailed, http.StatusInternalServerError, "import_failed"},
	{app.ErrUnsupportedImportType, http.StatusBadRequest, "unsupported_import_type"},
	{app.ErrInvalidImportMode, http.StatusBadRequest, "invalid_import_mode"},
	{app.ErrInvalidWorkspace, http.StatusBadRequest, "invalid_workspace"},
	{app.ErrInvalidFilename, http.StatusBadRequest, "invalid_filename"},
	{app.ErrInvalidTotalRecords, http.StatusBadRequest, "invalid_total_records"},
	{app.ErrMissingRequiredMapping, http.StatusBadRequest, "missing_required_mapping"},
	{app.ErrUnknownMappedField, http.StatusBadRequest, "unknown_mapped_field"},
	{app.ErrInvalidDuplicateField, http.StatusBadRequest, "invalid_duplicate_field"},
	{app.ErrInvalidCSV, http.StatusBadRequest, "invalid_csv"},
	{app.ErrEmptyBatch, http.StatusBadRequest, "empty_batch"},
	{app.ErrBatchTooLarge, http.StatusBadRequest, "batch_too_large"},
	{app.ErrInvalidStartIndex, http.StatusBadRequest, "invalid_start_index"},
	{app.ErrBatchOutOfRange, http.StatusBadRequest, "batch_out_of_range"},
}

func writeError(c echo.Context, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := err.Error()
		if m.status >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).WithError(err).Error("import request failed")
			message = m.target.Error()
		}
		return c.JSON(m.status, apiResponse{Error: &errorBody{Code: m.code, Message: message}})
	}

	logging.FromContext(c.Request().Context()).WithError(err).Error("import request failed")
	return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
		Code:    "internal_error",
		Message: "internal server error",
	}})
}

func badRequest(c echo.Context, code, message string) error {
	return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{Code: code, Message: message}})
}

// ErrorHandler renders framework errors such as unknown routes or oversized
// bodies in the same envelope as handler errors.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	} else {
		logging.FromContext(c.Request().Context()).WithError(err).Error("unhandled request error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, apiResponse{Error: &errorBody{Code: codeForStatus(status), Message: message}})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusBadRequest:
		return "bad_request"
	}
	return "internal_error"
}

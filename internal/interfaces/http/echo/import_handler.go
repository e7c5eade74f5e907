package echo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

type ImportHandler struct {
	service app.ImportService
	authz   domain.WorkspaceAuthorizer
}

func NewImportHandler(service app.ImportService, authz domain.WorkspaceAuthorizer) *ImportHandler {
	return &ImportHandler{service: service, authz: authz}
}

type actionEnvelope struct {
	Action string `json:"action"`
}

type createSessionRequest struct {
	WorkspaceID    string            `json:"workspaceId" validate:"required"`
	ImportType     string            `json:"importType"`
	Filename       string            `json:"filename"`
	TotalRecords   int64             `json:"totalRecords"`
	ImportMode     string            `json:"importMode"`
	DuplicateField string            `json:"duplicateField"`
	FieldMapping   map[string]string `json:"fieldMapping"`
}

type processBatchRequest struct {
	SessionID  string              `json:"sessionId" validate:"required"`
	Rows       []map[string]string `json:"rows" validate:"required"`
	StartIndex int64               `json:"startIndex"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type listErrorsRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Limit     int    `json:"limit" validate:"gte=0"`
	Offset    int    `json:"offset" validate:"gte=0"`
}

type listSessionsRequest struct {
	WorkspaceID string `json:"workspaceId" validate:"required"`
}

type validateDataRequest struct {
	WorkspaceID    string              `json:"workspaceId"`
	ImportType     string              `json:"importType"`
	FieldMapping   map[string]string   `json:"fieldMapping"`
	DuplicateField string              `json:"duplicateField"`
	Rows           []map[string]string `json:"rows"`
	StartIndex     int64               `json:"startIndex"`
}

type checkDuplicatesRequest struct {
	WorkspaceID    string              `json:"workspaceId" validate:"required"`
	ImportType     string              `json:"importType"`
	FieldMapping   map[string]string   `json:"fieldMapping"`
	DuplicateField string              `json:"duplicateField"`
	Rows           []map[string]string `json:"rows"`
	StartIndex     int64               `json:"startIndex"`
}

type parseCSVRequest struct {
	Content string `json:"content" validate:"required"`
}

type parseCSVResponse struct {
	Headers   []string     `json:"headers"`
	Rows      []app.RawRow `json:"rows"`
	TotalRows int          `json:"totalRows"`
}

// Handle dispatches POST /api/v1/import on the action field of the body.
func (h *ImportHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return err
		}
		return writeError(c, fmt.Errorf("%w: %v", errMalformedBody, err))
	}

	var envelope actionEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return writeError(c, fmt.Errorf("%w: %v", errMalformedBody, err))
	}

	switch strings.TrimSpace(envelope.Action) {
	case "create_session":
		return h.createSession(c, body)
	case "process_batch":
		return h.processBatch(c, body)
	case "get_progress":
		return h.getProgress(c, body)
	case "get_session":
		return h.getSession(c, body)
	case "get_summary":
		return h.getSummary(c, body)
	case "get_errors":
		return h.getErrors(c, body)
	case "list_sessions":
		return h.listSessions(c, body)
	case "cancel_session":
		return h.cancelSession(c, body)
	case "delete_session":
		return h.deleteSession(c, body)
	case "validate_data":
		return h.validateData(c, body)
	case "check_duplicates":
		return h.checkDuplicates(c, body)
	case "parse_csv":
		return h.parseCSV(c, body)
	}
	return writeError(c, fmt.Errorf("%w: %q", errUnknownAction, envelope.Action))
}

func (h *ImportHandler) createSession(c echo.Context, body []byte) error {
	var req createSessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authorize(c, req.WorkspaceID); err != nil {
		return writeError(c, err)
	}

	out, err := h.service.CreateSession(c.Request().Context(), app.CreateSessionInput{
		WorkspaceID:    req.WorkspaceID,
		ImportType:     req.ImportType,
		Filename:       req.Filename,
		TotalRecords:   req.TotalRecords,
		ImportMode:     req.ImportMode,
		DuplicateField: req.DuplicateField,
		FieldMapping:   req.FieldMapping,
		CreatedBy:      principalFrom(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, apiResponse{Data: out})
}

func (h *ImportHandler) processBatch(c echo.Context, body []byte) error {
	var req processBatchRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if _, err := h.authorizeSession(c, req.SessionID); err != nil {
		return writeError(c, err)
	}

	out, err := h.service.ProcessBatch(c.Request().Context(), app.ProcessBatchInput{
		SessionID:  req.SessionID,
		Rows:       toRawRows(req.Rows),
		StartIndex: req.StartIndex,
	})
	if err != nil {
		return writeError(c, err)
	}
	if out.Errors == nil {
		out.Errors = []domain.RowFailure{}
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) getProgress(c echo.Context, body []byte) error {
	var req sessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	session, err := h.authorizeSession(c, req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.service.GetProgress(c.Request().Context(), session.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) getSession(c echo.Context, body []byte) error {
	var req sessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	session, err := h.authorizeSession(c, req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: session})
}

func (h *ImportHandler) getSummary(c echo.Context, body []byte) error {
	var req sessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if _, err := h.authorizeSession(c, req.SessionID); err != nil {
		return writeError(c, err)
	}
	out, err := h.service.GetSummary(c.Request().Context(), req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) getErrors(c echo.Context, body []byte) error {
	var req listErrorsRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if _, err := h.authorizeSession(c, req.SessionID); err != nil {
		return writeError(c, err)
	}
	out, err := h.service.ListErrors(c.Request().Context(), req.SessionID, req.Limit, req.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) listSessions(c echo.Context, body []byte) error {
	var req listSessionsRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authorize(c, req.WorkspaceID); err != nil {
		return writeError(c, err)
	}
	out, err := h.service.ListSessions(c.Request().Context(), req.WorkspaceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) cancelSession(c echo.Context, body []byte) error {
	var req sessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if _, err := h.authorizeSession(c, req.SessionID); err != nil {
		return writeError(c, err)
	}
	out, err := h.service.CancelSession(c.Request().Context(), req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) deleteSession(c echo.Context, body []byte) error {
	var req sessionRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if _, err := h.authorizeSession(c, req.SessionID); err != nil {
		return writeError(c, err)
	}
	if err := h.service.DeleteSession(c.Request().Context(), req.SessionID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]any{"deleted": true, "sessionId": req.SessionID}})
}

func (h *ImportHandler) validateData(c echo.Context, body []byte) error {
	var req validateDataRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if req.WorkspaceID != "" {
		if err := h.authorize(c, req.WorkspaceID); err != nil {
			return writeError(c, err)
		}
	}

	out, err := h.service.ValidateData(c.Request().Context(), app.ValidateDataInput{
		ImportType:     req.ImportType,
		FieldMapping:   req.FieldMapping,
		DuplicateField: req.DuplicateField,
		Rows:           toRawRows(req.Rows),
		StartIndex:     req.StartIndex,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) checkDuplicates(c echo.Context, body []byte) error {
	var req checkDuplicatesRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authorize(c, req.WorkspaceID); err != nil {
		return writeError(c, err)
	}

	out, err := h.service.CheckDuplicates(c.Request().Context(), app.CheckDuplicatesInput{
		WorkspaceID:    req.WorkspaceID,
		ImportType:     req.ImportType,
		FieldMapping:   req.FieldMapping,
		DuplicateField: req.DuplicateField,
		Rows:           toRawRows(req.Rows),
		StartIndex:     req.StartIndex,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]any{
		"duplicates": out,
		"count":      len(out),
	}})
}

func (h *ImportHandler) parseCSV(c echo.Context, body []byte) error {
	var req parseCSVRequest
	if err := decode(c, body, &req); err != nil {
		return writeError(c, err)
	}
	parsed, err := app.ParseCSV(strings.NewReader(req.Content))
	if err != nil {
		return writeError(c, err)
	}
	rows := parsed.Rows
	if rows == nil {
		rows = []app.RawRow{}
	}
	return c.JSON(http.StatusOK, apiResponse{Data: parseCSVResponse{
		Headers:   parsed.Headers,
		Rows:      rows,
		TotalRows: len(rows),
	}})
}

func (h *ImportHandler) authorize(c echo.Context, workspaceID string) error {
	principal := principalFrom(c)
	if principal == "" {
		return errUnauthenticated
	}
	ok, err := h.authz.CanAccessWorkspace(c.Request().Context(), principal, workspaceID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return fmt.Errorf("%w: %v", app.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("authorize workspace: %w", err)
	}
	if !ok {
		return errForbidden
	}
	return nil
}

// authorizeSession loads the session and checks access to its workspace.
// Sessions of other workspaces are reported as not found.
func (h *ImportHandler) authorizeSession(c echo.Context, sessionID string) (app.SessionOutput, error) {
	session, err := h.service.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		return app.SessionOutput{}, err
	}
	if err := h.authorize(c, session.WorkspaceID); err != nil {
		if errors.Is(err, errForbidden) {
			return app.SessionOutput{}, app.ErrSessionNotFound
		}
		return app.SessionOutput{}, err
	}
	return session, nil
}

// decode unmarshals the action payload and runs struct validation.
func decode(c echo.Context, body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := c.Validate(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

func toRawRows(rows []map[string]string) []app.RawRow {
	out := make([]app.RawRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, app.RawRow(row))
	}
	return out
}

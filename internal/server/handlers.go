package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

const usageHint = "Use POST /ask with JSON { message } and header X-Agent-Token"

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", ServedBy: s.config.ServedBy})
}

func (s *Server) handleAskUsage(c echo.Context) error {
	return c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: usageHint})
}

// requireToken rejects requests without the configured agent token. With no
// token configured every request is rejected.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := s.config.Token
		got := c.Request().Header.Get(HeaderAgentToken)
		if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil || req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message required"})
	}

	ctx := c.Request().Context()
	res, err := s.workflow.Invoke(ctx, model.WorkflowInput{InputAsText: req.Message})
	if err != nil {
		return s.serverError(c, err)
	}

	body, err := s.normalize(res)
	if err != nil {
		return s.serverError(c, err)
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleTranscript(c echo.Context) error {
	items, err := s.workflow.LoadTranscript(c.Request().Context(), c.Param("id"))
	if err != nil {
		status := errx.StatusOf(err)
		if status == http.StatusNotFound {
			return c.JSON(status, errorResponse{Error: "not_found"})
		}
		return s.serverError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"run_id": c.Param("id"), "items": items})
}

// normalize flattens the result and tags it with the server identity. A
// result carrying output_text also gets it as "text".
func (s *Server) normalize(res *model.WorkflowResult) (map[string]any, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if text, ok := body["output_text"]; ok {
		body["text"] = text
	}
	body["served_by"] = s.config.ServedBy
	return body, nil
}

func (s *Server) serverError(c echo.Context, err error) error {
	logx.Ctx(c.Request().Context()).Error().Err(err).Msg("Workflow request failed")
	return c.JSON(errx.StatusOf(err), errorResponse{Error: "server_error", Detail: err.Error()})
}

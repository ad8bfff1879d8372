package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/licenced/internal/licence"
)

// handleStatus answers a licence status query. The userId query param
// wins; otherwise the identity from a verified caller token is used,
// and with neither the shared default user is consulted.
func (s *Server) handleStatus(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		if sub, ok := c.Get(ctxUserID).(string); ok {
			userID = sub
		}
	}

	st, err := s.svc.Status(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("licence status query failed")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "licence store unavailable",
		})
	}
	return c.JSON(http.StatusOK, toStatusResponse(st))
}

// handleGrant records a new licence grant.
func (s *Server) handleGrant(c echo.Context) error {
	var req GrantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
	}

	days := 0
	if req.Days != nil {
		days = *req.Days
	} else if req.Type == licence.KindTimed {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "days is required for timed licences",
		})
	}

	g, err := s.svc.Grant(c.Request().Context(), req.UserID, req.Type, days)
	if err != nil {
		if licence.IsValidation(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("licence grant failed")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "licence store unavailable",
		})
	}
	return c.JSON(http.StatusCreated, toGrantResponse(g))
}

// File: internal/controlapi/handlers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package controlapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const snapshotTimeout = 2 * time.Second

type autostartBody struct {
	Disabled *bool `json:"disabled"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDebugState(c echo.Context) error {
	if s.debug == nil {
		return c.JSON(http.StatusOK, map[string]any{})
	}
	return c.JSON(http.StatusOK, s.debug.DumpState())
}

func (s *Server) handleSession(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), snapshotTimeout)
	defer cancel()
	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "session history not configured")
	}
	body := map[string]any{
		"recent":   s.history.Recent(),
		"failures": s.history.Failures(),
	}
	if active, ok := s.history.Active(); ok {
		body["active"] = active
	}
	return c.JSON(http.StatusOK, body)
}

// command wraps a fire-and-forget controller call. Commands are queued,
// so the response only acknowledges receipt.
func (s *Server) command(fn func()) echo.HandlerFunc {
	return func(c echo.Context) error {
		fn()
		return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func (s *Server) handleGetAutostart(c echo.Context) error {
	if s.autostart == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "autostart switch not configured")
	}
	return c.JSON(http.StatusOK, map[string]bool{"disabled": s.autostart.AutostartDisabled()})
}

func (s *Server) handlePutAutostart(c echo.Context) error {
	if s.autostart == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "autostart switch not configured")
	}
	var body autostartBody
	if err := c.Bind(&body); err != nil || body.Disabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, `expected {"disabled": true|false}`)
	}
	s.autostart.SetAutostartDisabled(*body.Disabled)
	s.log.Info("Autostart changed", "disabled", *body.Disabled)
	return c.JSON(http.StatusOK, map[string]bool{"disabled": s.autostart.AutostartDisabled()})
}

func (s *Server) handleEvents(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.V(1).Info("Event stream upgrade failed", "error", err.Error())
		return nil
	}
	if err := s.events.Register(conn); err != nil {
		s.log.Info("Rejecting event subscriber", "error", err.Error())
		_ = conn.Close()
		return nil
	}

	// Read pump: blocks until the subscriber goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.events.Unregister(conn)
	return nil
}

// File: internal/controlapi/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Local HTTP control surface for the head unit UI: session commands,
// autostart switch, state and debug dumps, metrics and an event stream.

package controlapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/session"
)

// AutostartSwitch reads and flips the autostart setting.
type AutostartSwitch interface {
	api.AutostartPolicy
	SetAutostartDisabled(disabled bool)
}

// Server is the echo-based control API.
type Server struct {
	echo      *echo.Echo
	log       logr.Logger
	ctrl      api.SessionController
	autostart AutostartSwitch
	debug     api.Debug
	gatherer  prometheus.Gatherer
	events    *EventHub
	history   *session.History
	upgrader  websocket.Upgrader
}

// Option customizes the server.
type Option func(*Server)

func WithAutostartSwitch(sw AutostartSwitch) Option {
	return func(s *Server) { s.autostart = sw }
}

func WithDebug(d api.Debug) Option {
	return func(s *Server) { s.debug = d }
}

func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithHistory(h *session.History) Option {
	return func(s *Server) { s.history = h }
}

func WithEventHub(h *EventHub) Option {
	return func(s *Server) { s.events = h }
}

// NewServer builds the router around ctrl.
func NewServer(ctrl api.SessionController, log logr.Logger, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		log:      log,
		ctrl:     ctrl,
		gatherer: prometheus.DefaultGatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.events == nil {
		s.events = NewEventHub(log.WithName("events"))
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.V(1).Info("Control request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.echo.GET("/debug/state", s.handleDebugState)

	s.echo.GET("/session", s.handleSession)
	s.echo.GET("/sessions", s.handleHistory)
	s.echo.POST("/session/wait", s.command(s.ctrl.BeginWaitingForDevice))
	s.echo.POST("/session/pause", s.command(s.ctrl.PauseActiveSession))
	s.echo.POST("/session/resume", s.command(s.ctrl.ResumeActiveSession))
	s.echo.POST("/session/stop", s.command(s.ctrl.StopAll))

	s.echo.GET("/autostart", s.handleGetAutostart)
	s.echo.PUT("/autostart", s.handlePutAutostart)

	s.echo.GET("/events", s.handleEvents)
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Events returns the hub to register as an orchestrator observer.
func (s *Server) Events() *EventHub {
	return s.events
}

// Serve runs the API on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.echo.Listener = ln
	s.log.Info("Control API listening", "addr", ln.Addr().String())
	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and disconnects event subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Close()
	return s.echo.Shutdown(ctx)
}

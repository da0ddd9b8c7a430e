package server

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serveHealthCheck runs the liveness endpoint: every path and method is
// answered with a 200 and an empty body. When metrics are configured,
// /metrics additionally serves the Prometheus registry.
func (s *Server) serveHealthCheck(ctx context.Context) error {
	if !s.enableHealthCheck {
		logger.Infof("%s listener disabled", ListenerHealthCheck)
		return nil
	}
	lis, err := net.Listen("tcp", s.healthCheckAddress)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.healthCheckAddress)
	}
	s.setAddr(ListenerHealthCheck, lis.Addr())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
	ok := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
	e.Any("/", ok)
	e.Any("/*", ok)
	e.Listener = lis

	go func() {
		<-ctx.Done()
		if err := e.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warnf("%s listener shutdown failed", ListenerHealthCheck)
		}
	}()

	logger.WithField("address", lis.Addr().String()).Infof("%s listener started", ListenerHealthCheck)
	if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "serve %s failed", ListenerHealthCheck)
	}
	return nil
}

package apps

import (
	"context"

	"github.com/pkg/errors"

	"callout/internal/pkg/metrics"
	"callout/internal/pkg/processor"
	"callout/internal/pkg/server"
	"callout/internal/pkg/service"
	"callout/internal/pkg/validate"
)

// ServerApp runs the callout server with the default processor mounted
// on every enabled listener.
type ServerApp struct {
	Address            string `validate:"required,hostname_port"`
	PlaintextAddress   string `validate:"required,hostname_port"`
	HealthCheckAddress string `validate:"required,hostname_port"`
	CertFile           string
	KeyFile            string
	EnableTLS          bool
	EnablePlaintext    bool
	EnableHealthCheck  bool
}

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// NewServerApp creates a new ServerApp with the given configuration.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{
		Address:            server.DefaultAddress,
		PlaintextAddress:   server.DefaultPlaintextAddress,
		HealthCheckAddress: server.DefaultHealthCheckAddress,
		EnablePlaintext:    true,
		EnableHealthCheck:  true,
	}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

func (app *ServerApp) Run(ctx context.Context, _ []string) error {
	m := metrics.New()
	svc, err := service.NewService(
		service.WithProcessor(processor.NewHeaderMutationProcessor()),
		service.WithMetrics(m),
	)
	if err != nil {
		return errors.Wrap(err, "new service failed")
	}
	cfgs := []server.Cfg{
		server.WithService(svc),
		server.WithMetrics(m),
		server.WithSecureAddress(app.Address),
		server.WithPlaintextAddress(app.PlaintextAddress),
		server.WithHealthCheckAddress(app.HealthCheckAddress),
	}
	if app.EnableTLS {
		cfgs = append(cfgs, server.WithTLS(app.CertFile, app.KeyFile))
	}
	if !app.EnablePlaintext {
		cfgs = append(cfgs, server.WithoutPlaintext())
	}
	if !app.EnableHealthCheck {
		cfgs = append(cfgs, server.WithoutHealthCheck())
	}
	srv, err := server.New(cfgs...)
	if err != nil {
		return errors.Wrap(err, "new server failed")
	}
	return errors.Wrap(srv.Run(ctx), "run server failed")
}

package apps

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"callout/internal/pkg/client"
	"callout/internal/pkg/log"
	"callout/internal/pkg/validate"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ClientApp drives one exchange per traffic phase against a callout
// server and logs the returned mutations.
type ClientApp struct {
	Target string `validate:"required,hostname_port"`
}

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// NewClientApp creates a new ClientApp with the given configuration.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

func (app *ClientApp) Run(ctx context.Context, _ []string) error {
	c, err := client.NewClient(client.WithTarget(app.Target))
	if err != nil {
		return errors.Wrap(err, "new client failed")
	}
	if err := c.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect failed")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.WithError(err).Warn("close client failed")
		}
	}()

	resp, err := c.RequestHeaders(map[string]string{"host": "example.com"})
	if err != nil {
		return errors.Wrap(err, "request headers exchange failed")
	}
	logger.WithFields(log.ProcessingResponseToFields(resp)).Info("request headers processed")

	resp, err = c.ResponseHeaders(map[string]string{"content-type": "text/plain"})
	if err != nil {
		return errors.Wrap(err, "response headers exchange failed")
	}
	logger.WithFields(log.ProcessingResponseToFields(resp)).Info("response headers processed")

	resp, err = c.RequestBody([]byte("hello"), true)
	if err != nil {
		return errors.Wrap(err, "request body exchange failed")
	}
	logger.WithFields(log.ProcessingResponseToFields(resp)).Info("request body processed")

	resp, err = c.ResponseBody([]byte("world"), true)
	if err != nil {
		return errors.Wrap(err, "response body exchange failed")
	}
	logger.WithFields(log.ProcessingResponseToFields(resp)).Info("response body processed")

	return nil
}

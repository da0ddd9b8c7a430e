// Package cfg implements reusable configuration objects for apps.
//
// A configuration object is implemented once and applied to every app
// type that understands it through an ApplyX method.
package cfg

import (
	"callout/internal"
	"callout/internal/app/apps"
)

// ListenCfg carries the listener addresses and enable flags for the
// callout server.
type ListenCfg struct {
	address            string
	plaintextAddress   string
	healthCheckAddress string
	enableTLS          bool
	enablePlaintext    bool
	enableHealthCheck  bool
}

// NewListenCfg creates a new ListenCfg from explicit values.
func NewListenCfg(address, plaintextAddress, healthCheckAddress string, enableTLS, enablePlaintext, enableHealthCheck bool) *ListenCfg {
	return &ListenCfg{
		address:            address,
		plaintextAddress:   plaintextAddress,
		healthCheckAddress: healthCheckAddress,
		enableTLS:          enableTLS,
		enablePlaintext:    enablePlaintext,
		enableHealthCheck:  enableHealthCheck,
	}
}

// ListenFromEnv creates a new ListenCfg from the current environment.
func ListenFromEnv() *ListenCfg {
	return NewListenCfg(
		internal.Address,
		internal.PlaintextAddress,
		internal.HealthCheckAddress,
		internal.EnableTLS,
		internal.EnablePlaintext,
		internal.EnableHealthCheck,
	)
}

// ApplyServerApp applies the ListenCfg to a ServerApp.
func (cfg ListenCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Address = cfg.address
	app.PlaintextAddress = cfg.plaintextAddress
	app.HealthCheckAddress = cfg.healthCheckAddress
	app.EnableTLS = cfg.enableTLS
	app.EnablePlaintext = cfg.enablePlaintext
	app.EnableHealthCheck = cfg.enableHealthCheck
	return nil
}

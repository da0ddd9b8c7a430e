package cfg

import (
	"callout/internal"
	"callout/internal/app/apps"
)

// TLSCfg carries the TLS identity material paths.
type TLSCfg struct {
	certFile string
	keyFile  string
}

// NewTLSCfg creates a new TLSCfg from explicit paths.
func NewTLSCfg(certFile, keyFile string) *TLSCfg {
	return &TLSCfg{
		certFile: certFile,
		keyFile:  keyFile,
	}
}

// TLSFromEnv creates a new TLSCfg from the current environment.
func TLSFromEnv() *TLSCfg {
	return NewTLSCfg(internal.CertFile, internal.KeyFile)
}

// ApplyServerApp applies the TLSCfg to a ServerApp.
func (cfg TLSCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.CertFile = cfg.certFile
	app.KeyFile = cfg.keyFile
	return nil
}

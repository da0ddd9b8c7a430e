package cfg

import (
	"net"
	"strings"

	"callout/internal"
	"callout/internal/app/apps"
)

// TargetCfg carries the server address a client app connects to.
type TargetCfg struct {
	target string
}

// NewTargetCfg creates a new TargetCfg from an explicit address.
func NewTargetCfg(target string) *TargetCfg {
	return &TargetCfg{target: target}
}

// TargetFromEnv creates a new TargetCfg pointing at the plaintext
// listener of the current environment. A wildcard listen host is
// rewritten to loopback so the dial target is routable.
func TargetFromEnv() *TargetCfg {
	target := internal.PlaintextAddress
	if host, port, err := net.SplitHostPort(target); err == nil {
		if host == "" || host == "0.0.0.0" || strings.EqualFold(host, "::") {
			target = net.JoinHostPort("127.0.0.1", port)
		}
	}
	return NewTargetCfg(target)
}

// ApplyClientApp applies the TargetCfg to a ClientApp.
func (cfg TargetCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Target = cfg.target
	return nil
}

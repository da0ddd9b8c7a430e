package apps_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"callout/internal/app/apps"
	"callout/internal/app/cfg"
	"callout/internal/pkg/server"
)

func TestNewServerAppDefaults(t *testing.T) {
	app, err := apps.NewServerApp()
	require.NoError(t, err)

	require.Equal(t, server.DefaultAddress, app.Address)
	require.Equal(t, server.DefaultPlaintextAddress, app.PlaintextAddress)
	require.Equal(t, server.DefaultHealthCheckAddress, app.HealthCheckAddress)
	require.False(t, app.EnableTLS)
	require.True(t, app.EnablePlaintext)
	require.True(t, app.EnableHealthCheck)
}

func TestNewServerAppWithCfgs(t *testing.T) {
	app, err := apps.NewServerApp(
		cfg.NewListenCfg("127.0.0.1:9443", "127.0.0.1:9181", "127.0.0.1:9000", true, false, false),
		cfg.NewTLSCfg("server.crt", "server.key"),
	)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9443", app.Address)
	require.Equal(t, "127.0.0.1:9181", app.PlaintextAddress)
	require.Equal(t, "127.0.0.1:9000", app.HealthCheckAddress)
	require.True(t, app.EnableTLS)
	require.False(t, app.EnablePlaintext)
	require.False(t, app.EnableHealthCheck)
	require.Equal(t, "server.crt", app.CertFile)
	require.Equal(t, "server.key", app.KeyFile)
}

func TestNewServerAppBadAddress(t *testing.T) {
	_, err := apps.NewServerApp(
		cfg.NewListenCfg("not an address", "127.0.0.1:9181", "127.0.0.1:9000", false, true, true),
	)
	require.Error(t, err)
}

func TestNewClientAppRequiresTarget(t *testing.T) {
	_, err := apps.NewClientApp()
	require.Error(t, err)
}

func TestNewClientAppWithTarget(t *testing.T) {
	app, err := apps.NewClientApp(cfg.NewTargetCfg("127.0.0.1:8181"))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8181", app.Target)
}

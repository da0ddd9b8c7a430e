// Package internal holds process-wide settings sourced from defaults,
// overridden by the environment, overridden by command line flags.
package internal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"callout/internal/pkg/validate"
)

// Settings with their documented defaults. The secure listener is off by
// default; the plaintext listener and the health check are on.
var (
	Env      = "development"
	LogLevel = "info"

	Address            = "0.0.0.0:8443"
	PlaintextAddress   = "0.0.0.0:8181"
	HealthCheckAddress = "0.0.0.0:8000"

	CertFile = "ssl_creds/localhost.crt"
	KeyFile  = "ssl_creds/localhost.key"

	EnableTLS         = false
	EnablePlaintext   = true
	EnableHealthCheck = true
)

// Flag binds a settings variable to a cobra flag with an environment
// fallback.
type Flag struct {
	Name   string
	Env    string
	Usage  string
	String *string
	Bool   *bool
}

// Flag definitions.
var (
	EnvFlag      = Flag{Name: "env", Env: "CALLOUT_ENV", Usage: "Deployment environment name.", String: &Env}
	LogLevelFlag = Flag{Name: "log-level", Env: "CALLOUT_LOG_LEVEL", Usage: "Log level: trace|debug|info|warn|error.", String: &LogLevel}

	AddressFlag            = Flag{Name: "address", Env: "CALLOUT_ADDRESS", Usage: "Secure gRPC listener address.", String: &Address}
	PlaintextAddressFlag   = Flag{Name: "plaintext-address", Env: "CALLOUT_PLAINTEXT_ADDRESS", Usage: "Plaintext gRPC listener address.", String: &PlaintextAddress}
	HealthCheckAddressFlag = Flag{Name: "health-check-address", Env: "CALLOUT_HEALTH_CHECK_ADDRESS", Usage: "Health check listener address.", String: &HealthCheckAddress}

	CertFileFlag = Flag{Name: "cert-file", Env: "CALLOUT_CERT_FILE", Usage: "Path to the PEM TLS certificate.", String: &CertFile}
	KeyFileFlag  = Flag{Name: "key-file", Env: "CALLOUT_KEY_FILE", Usage: "Path to the PEM TLS private key.", String: &KeyFile}

	EnableTLSFlag         = Flag{Name: "enable-tls", Env: "CALLOUT_ENABLE_TLS", Usage: "Serve the secure gRPC listener.", Bool: &EnableTLS}
	EnablePlaintextFlag   = Flag{Name: "enable-plaintext", Env: "CALLOUT_ENABLE_PLAINTEXT", Usage: "Serve the plaintext gRPC listener.", Bool: &EnablePlaintext}
	EnableHealthCheckFlag = Flag{Name: "enable-health-check", Env: "CALLOUT_ENABLE_HEALTH_CHECK", Usage: "Serve the health check listener.", Bool: &EnableHealthCheck}
)

// RegisterCommandFlags registers the flags on the command, applying any
// environment override as the flag default first.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		switch {
		case f.String != nil:
			if v, ok := os.LookupEnv(f.Env); ok {
				*f.String = v
			}
			cmd.PersistentFlags().StringVar(f.String, f.Name, *f.String, f.Usage)
		case f.Bool != nil:
			if v, ok := os.LookupEnv(f.Env); ok {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return errors.Wrapf(err, "parse %s failed", f.Env)
				}
				*f.Bool = b
			}
			cmd.PersistentFlags().BoolVar(f.Bool, f.Name, *f.Bool, f.Usage)
		default:
			return errors.Errorf("flag %s has no target", f.Name)
		}
	}
	return nil
}

// environment captures the resolved settings subject to validation.
type environment struct {
	LogLevel           string `validate:"oneof=trace debug info warn error"`
	Address            string `validate:"required,hostname_port"`
	PlaintextAddress   string `validate:"required,hostname_port"`
	HealthCheckAddress string `validate:"required,hostname_port"`
	EnableTLS          bool
	CertFile           string `validate:"required_if=EnableTLS true"`
	KeyFile            string `validate:"required_if=EnableTLS true"`
}

// ValidateEnv checks the resolved settings.
func ValidateEnv() error {
	env := environment{
		LogLevel:           LogLevel,
		Address:            Address,
		PlaintextAddress:   PlaintextAddress,
		HealthCheckAddress: HealthCheckAddress,
		EnableTLS:          EnableTLS,
		CertFile:           CertFile,
		KeyFile:            KeyFile,
	}
	return errors.Wrap(validate.Validate().Struct(env), "validate environment failed")
}

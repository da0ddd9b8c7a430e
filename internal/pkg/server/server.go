package server

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"sync"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"callout/internal/pkg/metrics"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Listener names used for logging and bound-address lookup.
const (
	ListenerSecure      = "secure gRPC"
	ListenerPlaintext   = "plaintext gRPC"
	ListenerHealthCheck = "health check"
)

// Default listener addresses.
const (
	DefaultAddress            = "0.0.0.0:8443"
	DefaultPlaintextAddress   = "0.0.0.0:8181"
	DefaultHealthCheckAddress = "0.0.0.0:8000"
)

// Server runs the secure and plaintext gRPC listeners and the health
// check endpoint. Each listener is independently enabled and fault
// isolated: a listener that fails to bind or serve is logged and does
// not stop the others, and is not restarted.
type Server struct {
	service extprocv3.ExternalProcessorServer
	metrics *metrics.Metrics

	address            string
	plaintextAddress   string
	healthCheckAddress string
	certFile           string
	keyFile            string
	enableTLS          bool
	enablePlaintext    bool
	enableHealthCheck  bool

	mu    sync.Mutex
	addrs map[string]net.Addr
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithService sets the external processor service to host.
func WithService(service extprocv3.ExternalProcessorServer) Cfg {
	return func(s *Server) error {
		s.service = service
		return nil
	}
}

// WithMetrics exposes the given registry on the health listener's
// /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Cfg {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

// WithSecureAddress sets the secure gRPC listener address.
func WithSecureAddress(address string) Cfg {
	return func(s *Server) error {
		s.address = address
		return nil
	}
}

// WithPlaintextAddress sets the plaintext gRPC listener address.
func WithPlaintextAddress(address string) Cfg {
	return func(s *Server) error {
		s.plaintextAddress = address
		return nil
	}
}

// WithHealthCheckAddress sets the health check listener address.
func WithHealthCheckAddress(address string) Cfg {
	return func(s *Server) error {
		s.healthCheckAddress = address
		return nil
	}
}

// WithTLS enables the secure listener with the given PEM certificate
// and key files. The files are loaded once at listener startup.
func WithTLS(certFile, keyFile string) Cfg {
	return func(s *Server) error {
		s.certFile = certFile
		s.keyFile = keyFile
		s.enableTLS = true
		return nil
	}
}

// WithoutPlaintext disables the plaintext gRPC listener.
func WithoutPlaintext() Cfg {
	return func(s *Server) error {
		s.enablePlaintext = false
		return nil
	}
}

// WithoutHealthCheck disables the health check listener.
func WithoutHealthCheck() Cfg {
	return func(s *Server) error {
		s.enableHealthCheck = false
		return nil
	}
}

// New creates a new Server with the given configuration.
func New(cfgs ...Cfg) (*Server, error) {
	s := &Server{
		address:            DefaultAddress,
		plaintextAddress:   DefaultPlaintextAddress,
		healthCheckAddress: DefaultHealthCheckAddress,
		enablePlaintext:    true,
		enableHealthCheck:  true,
		addrs:              make(map[string]net.Addr),
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if s.service == nil {
		return nil, errors.New("no service configured")
	}
	return s, nil
}

// Run starts every enabled listener in its own goroutine and blocks
// until the context is cancelled and all listeners have wound down.
func (s *Server) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	start := func(name string, serve func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serve(ctx); err != nil {
				logger.WithError(err).Errorf("%s listener failed", name)
			}
		}()
	}
	start(ListenerSecure, s.serveSecure)
	start(ListenerPlaintext, s.servePlaintext)
	start(ListenerHealthCheck, s.serveHealthCheck)
	wg.Wait()
	return nil
}

// Addr returns the bound address of the named listener, nil before it
// has bound. Useful to find the actual port when listening on ":0".
func (s *Server) Addr(name string) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addrs[name]
}

func (s *Server) setAddr(name string, addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs[name] = addr
}

func (s *Server) serveSecure(ctx context.Context) error {
	if !s.enableTLS {
		logger.Infof("%s listener disabled", ListenerSecure)
		return nil
	}
	if _, err := os.Stat(s.certFile); err != nil {
		return errors.Wrap(err, "stat certificate file failed")
	}
	if _, err := os.Stat(s.keyFile); err != nil {
		return errors.Wrap(err, "stat key file failed")
	}
	cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
	if err != nil {
		return errors.Wrap(err, "load TLS key pair failed")
	}
	return s.serveGRPC(ctx, ListenerSecure, s.address, grpc.Creds(credentials.NewServerTLSFromCert(&cert)))
}

func (s *Server) servePlaintext(ctx context.Context) error {
	if !s.enablePlaintext {
		logger.Infof("%s listener disabled", ListenerPlaintext)
		return nil
	}
	return s.serveGRPC(ctx, ListenerPlaintext, s.plaintextAddress)
}

func (s *Server) serveGRPC(ctx context.Context, name, address string, opts ...grpc.ServerOption) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", address)
	}
	s.setAddr(name, lis.Addr())

	srv := grpc.NewServer(opts...)
	extprocv3.RegisterExternalProcessorServer(srv, s.service)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.WithField("address", lis.Addr().String()).Infof("%s listener started", name)
	if err := srv.Serve(lis); err != nil {
		return errors.Wrapf(err, "serve %s failed", name)
	}
	return nil
}

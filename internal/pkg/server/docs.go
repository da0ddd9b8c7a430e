// Package server owns the process listener lifecycle for the callout
// service: a TLS-terminated gRPC listener, a plaintext gRPC listener and
// an HTTP liveness endpoint, each independently enabled and fault
// isolated. The same service instance (and thus the same processor) is
// mounted on both gRPC listeners.
package server

// Package client implements a minimal ext_proc client.
//
// The client opens a processing stream against a callout server and
// performs synchronous request/response exchanges, one per traffic
// phase. A real deployment never uses this — the proxy is the client —
// but it makes the service demoable and integration-testable without an
// Envoy in front.
package client

// Package processor defines the capability contract a pluggable traffic
// handler must satisfy, the closed error taxonomy it reports failures
// with, and the default handler injected at startup.
//
// The dispatcher in internal/pkg/service owns everything else: message
// classification, ordering, and error-to-status mapping. A Processor
// only decides what to do with one message of one phase at a time.
package processor

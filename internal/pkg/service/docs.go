// Package service implements the stream dispatcher for the ext_proc
// external processor RPC.
//
// Each accepted Process call gets one dispatcher instance built around
// two goroutines joined by channels: a reader pulls tagged
// ProcessingRequest messages off the duplex stream, a dispatch stage
// classifies each message by phase and invokes the shared Processor, and
// the RPC goroutine drains the ordered hand-off queue back onto the
// wire. Ordering is strict within a call; calls are fully independent of
// each other.
package service

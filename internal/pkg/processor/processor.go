package processor

import (
	"context"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
)

// Processor handles the four traffic phases of a processing stream.
//
// Every method receives the full ProcessingRequest so an implementation
// can pattern-match on the variant it actually got. A single Processor
// instance is shared by every stream on every listener, so
// implementations must be safe for concurrent use; any mutable state
// they hold is their own responsibility to synchronize.
type Processor interface {
	ProcessRequestHeaders(ctx context.Context, req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error)
	ProcessResponseHeaders(ctx context.Context, req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error)
	ProcessRequestBody(ctx context.Context, req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error)
	ProcessResponseBody(ctx context.Context, req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error)
}

package processor

import (
	"context"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"

	"callout/internal/pkg/mutation"
)

// HeaderMutationProcessor is the default processor. It tags request and
// response headers with a fixed marker header and passes bodies through
// untouched. It holds no state and is safe for concurrent use.
type HeaderMutationProcessor struct{}

// NewHeaderMutationProcessor creates a new HeaderMutationProcessor.
func NewHeaderMutationProcessor() *HeaderMutationProcessor {
	return &HeaderMutationProcessor{}
}

func (p *HeaderMutationProcessor) ProcessRequestHeaders(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	return mutation.AddHeaderMutation(
		[]mutation.Header{{Name: "header-request", Value: "Value-request"}},
		nil, false, true, 0,
	), nil
}

func (p *HeaderMutationProcessor) ProcessResponseHeaders(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	return mutation.AddHeaderMutation(
		[]mutation.Header{{Name: "header-response", Value: "Value-response"}},
		nil, false, false, 0,
	), nil
}

func (p *HeaderMutationProcessor) ProcessRequestBody(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	return &extprocv3.ProcessingResponse{}, nil
}

func (p *HeaderMutationProcessor) ProcessResponseBody(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	return &extprocv3.ProcessingResponse{}, nil
}

package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"callout/internal/pkg/client"
	"callout/internal/pkg/metrics"
	"callout/internal/pkg/mutation"
	"callout/internal/pkg/processor"
)

// fakeProcessStream is an in-memory ExternalProcessor_ProcessServer.
// Recv yields the scripted requests then io.EOF; Send records responses.
type fakeProcessStream struct {
	grpc.ServerStream

	ctx      context.Context
	requests []*extprocv3.ProcessingRequest
	pos      int
	sendErr  error
	block    chan struct{}

	mu   sync.Mutex
	sent []*extprocv3.ProcessingResponse
}

func newFakeProcessStream(ctx context.Context, requests ...*extprocv3.ProcessingRequest) *fakeProcessStream {
	return &fakeProcessStream{ctx: ctx, requests: requests}
}

func (f *fakeProcessStream) Context() context.Context {
	return f.ctx
}

func (f *fakeProcessStream) Recv() (*extprocv3.ProcessingRequest, error) {
	if f.pos >= len(f.requests) {
		// With block set, Recv stalls like a client that is waiting
		// for a response before sending its next message.
		if f.block != nil {
			<-f.block
		}
		return nil, io.EOF
	}
	msg := f.requests[f.pos]
	f.pos++
	return msg, nil
}

func (f *fakeProcessStream) Send(resp *extprocv3.ProcessingResponse) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, resp)
	return nil
}

func (f *fakeProcessStream) responses() []*extprocv3.ProcessingResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*extprocv3.ProcessingResponse(nil), f.sent...)
}

// scriptedProcessor records which phases were dispatched and answers
// with a per-phase response tag so ordering can be asserted.
type scriptedProcessor struct {
	mu    sync.Mutex
	calls []string

	responseHeaders func(*extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error)
}

func (p *scriptedProcessor) record(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, phase)
}

func (p *scriptedProcessor) phases() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *scriptedProcessor) ProcessRequestHeaders(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	p.record("request_headers")
	return mutation.AddHeaderMutation(nil, nil, false, true, 0), nil
}

func (p *scriptedProcessor) ProcessResponseHeaders(_ context.Context, req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	p.record("response_headers")
	if p.responseHeaders != nil {
		return p.responseHeaders(req)
	}
	return mutation.AddHeaderMutation(nil, nil, false, false, 0), nil
}

func (p *scriptedProcessor) ProcessRequestBody(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	p.record("request_body")
	return mutation.AddBodyStringMutation("req", true, false), nil
}

func (p *scriptedProcessor) ProcessResponseBody(_ context.Context, _ *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	p.record("response_body")
	return mutation.AddBodyStringMutation("resp", false, false), nil
}

func TestNewServiceRequiresProcessor(t *testing.T) {
	_, err := NewService()
	require.Error(t, err)
}

func TestProcessOrdering(t *testing.T) {
	p := &scriptedProcessor{}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestHeaders(map[string]string{"host": "example.com"}),
		client.NewRequestBody([]byte("one"), false),
		client.NewRequestBody([]byte("two"), true),
		client.NewResponseHeaders(map[string]string{"content-type": "text/plain"}),
		client.NewResponseBody([]byte("three"), true),
	)

	require.NoError(t, s.Process(stream))

	responses := stream.responses()
	require.Len(t, responses, 5, "one response per request")
	require.NotNil(t, responses[0].GetRequestHeaders())
	require.NotNil(t, responses[1].GetRequestBody())
	require.NotNil(t, responses[2].GetRequestBody())
	require.NotNil(t, responses[3].GetResponseHeaders())
	require.NotNil(t, responses[4].GetResponseBody())

	require.Equal(t, []string{
		"request_headers",
		"request_body",
		"request_body",
		"response_headers",
		"response_body",
	}, p.phases())
}

func TestProcessHeaderMutationScenario(t *testing.T) {
	s, err := NewService(WithProcessor(processor.NewHeaderMutationProcessor()))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestHeaders(map[string]string{"host": "example.com"}),
	)

	require.NoError(t, s.Process(stream))

	responses := stream.responses()
	require.Len(t, responses, 1)
	headers := responses[0].GetRequestHeaders()
	require.NotNil(t, headers)

	m := headers.GetResponse().GetHeaderMutation()
	require.Len(t, m.GetSetHeaders(), 1)
	require.Equal(t, "header-request", m.GetSetHeaders()[0].GetHeader().GetKey())
	require.Equal(t, []byte("Value-request"), m.GetSetHeaders()[0].GetHeader().GetRawValue())
	require.Empty(t, m.GetRemoveHeaders())
	require.False(t, headers.GetResponse().GetClearRouteCache())
}

func TestProcessPermissionDeniedStopsDispatch(t *testing.T) {
	p := &scriptedProcessor{
		responseHeaders: func(*extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
			return nil, processor.PermissionDenied("token is invalid")
		},
	}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestHeaders(map[string]string{"host": "example.com"}),
		client.NewResponseHeaders(map[string]string{"content-type": "text/plain"}),
		client.NewRequestBody([]byte("never dispatched"), true),
		client.NewResponseBody([]byte("never dispatched"), true),
	)

	err = s.Process(stream)
	require.Error(t, err)
	require.Equal(t, codes.PermissionDenied, status.Code(err))
	require.Equal(t, "token is invalid", status.Convert(err).Message())

	require.Len(t, stream.responses(), 1, "no partial response for the erroring message")
	require.Equal(t, []string{"request_headers", "response_headers"}, p.phases())
}

func TestProcessFailedMapsToInternal(t *testing.T) {
	p := &scriptedProcessor{
		responseHeaders: func(*extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
			return nil, processor.Failed("upstream lookup broke")
		},
	}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewResponseHeaders(map[string]string{"content-type": "text/plain"}),
	)

	err = s.Process(stream)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "upstream lookup broke", status.Convert(err).Message())
}

func TestProcessPassthrough(t *testing.T) {
	p := &scriptedProcessor{}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestTrailers(map[string]string{"grpc-status": "0"}),
		&extprocv3.ProcessingRequest{},
	)

	require.NoError(t, s.Process(stream))

	responses := stream.responses()
	require.Len(t, responses, 2)
	for _, resp := range responses {
		require.Nil(t, resp.GetResponse(), "pass-through response is empty")
	}
	require.Empty(t, p.phases(), "pass-through must not invoke the processor")
}

func TestProcessErrorReturnsWhileClientWaits(t *testing.T) {
	p := &scriptedProcessor{
		responseHeaders: func(*extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
			return nil, processor.PermissionDenied("token is invalid")
		},
	}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewResponseHeaders(map[string]string{"content-type": "text/plain"}),
	)
	// The client sends one message and then waits for its response, so
	// Recv stays blocked. The terminal status must still come back.
	stream.block = make(chan struct{})
	defer close(stream.block)

	done := make(chan error, 1)
	go func() {
		done <- s.Process(stream)
	}()

	select {
	case err := <-done:
		require.Equal(t, codes.PermissionDenied, status.Code(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return while the client was waiting for a response")
	}
}

func TestProcessSendFailure(t *testing.T) {
	p := &scriptedProcessor{}
	s, err := NewService(WithProcessor(p))
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestHeaders(map[string]string{"host": "example.com"}),
	)
	stream.sendErr = io.ErrClosedPipe

	require.Error(t, s.Process(stream))
}

func TestProcessCountsMetrics(t *testing.T) {
	m := metrics.New()
	s, err := NewService(
		WithProcessor(&scriptedProcessor{}),
		WithMetrics(m),
	)
	require.NoError(t, err)

	stream := newFakeProcessStream(context.Background(),
		client.NewRequestHeaders(map[string]string{"host": "example.com"}),
		client.NewRequestBody([]byte("hello"), true),
	)

	require.NoError(t, s.Process(stream))

	require.Equal(t, 1.0, testutil.ToFloat64(m.StreamsTotal))
	require.Equal(t, 0.0, testutil.ToFloat64(m.StreamsActive))
	require.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("request_headers", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("request_body", "ok")))
}

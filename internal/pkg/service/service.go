package service

import (
	"context"
	"io"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"callout/internal/pkg/log"
	"callout/internal/pkg/metrics"
	"callout/internal/pkg/processor"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// outboundBuffer bounds the ordered hand-off between dispatch and the wire.
const outboundBuffer = 32

// Service hosts a shared Processor behind the ExternalProcessor duplex RPC.
type Service struct {
	extprocv3.UnimplementedExternalProcessorServer

	processor processor.Processor
	metrics   *metrics.Metrics
}

// Cfg configures a Service.
type Cfg func(*Service) error

// WithProcessor sets the processor invoked for every stream.
func WithProcessor(p processor.Processor) Cfg {
	return func(s *Service) error {
		s.processor = p
		return nil
	}
}

// WithMetrics enables stream and message counters.
func WithMetrics(m *metrics.Metrics) Cfg {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// NewService creates a new Service with the given configuration.
func NewService(cfgs ...Cfg) (*Service, error) {
	s := &Service{}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Service cfg failed")
		}
	}
	if s.processor == nil {
		return nil, errors.New("no processor configured")
	}
	return s, nil
}

// result is one entry of the ordered hand-off queue.
type result struct {
	response *extprocv3.ProcessingResponse
	err      error
}

// Process implements the bidirectional ext_proc stream. A reader
// goroutine feeds inbound messages to a dispatch goroutine which invokes
// the processor and pushes results onto an ordered hand-off queue; this
// goroutine drains the queue to the wire. Responses therefore leave in
// the order their requests arrived, and a slow send never stalls the
// inbound read. The first processor error terminates the stream with the
// mapped status; nothing after it is dispatched.
func (s *Service) Process(stream extprocv3.ExternalProcessor_ProcessServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	streamLogger := logger.WithField("stream_uuid", uuid.New().String())
	streamLogger.Info("processing stream established")

	if s.metrics != nil {
		s.metrics.StreamsTotal.Inc()
		s.metrics.StreamsActive.Inc()
		defer s.metrics.StreamsActive.Dec()
	}

	in := make(chan *extprocv3.ProcessingRequest)
	out := make(chan result, outboundBuffer)

	// The receive goroutine is not waited on. A client that waits for
	// the response to its last message keeps Recv blocked, and grpc-go
	// only unblocks that Recv once this handler returns; returning
	// promptly is what flushes a terminal error status to the client.
	// The goroutine exits right after, when its pending Recv fails.
	go func() {
		defer close(in)
		s.receive(ctx, stream, in, streamLogger)
	}()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		defer close(out)
		s.dispatch(ctx, in, out, streamLogger)
	}()

	var streamErr error
	for r := range out {
		if r.err != nil {
			streamErr = statusFromProcessingError(r.err)
			break
		}
		if err := stream.Send(r.response); err != nil {
			streamErr = errors.Wrap(err, "send response failed")
			break
		}
	}
	cancel()
	<-dispatchDone
	if streamErr != nil {
		streamLogger.WithError(streamErr).Warn("processing stream terminated")
	} else {
		streamLogger.Info("processing stream finished")
	}
	return streamErr
}

// receive reads inbound messages until the client half-closes, the
// connection drops, or the stream context is cancelled.
func (s *Service) receive(ctx context.Context, stream extprocv3.ExternalProcessor_ProcessServer, in chan<- *extprocv3.ProcessingRequest, streamLogger logrus.FieldLogger) {
	for {
		msg, err := stream.Recv()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				streamLogger.Debug("client closed the stream")
			case status.Code(err) == codes.Canceled:
				streamLogger.Warn("client disconnected")
			default:
				streamLogger.WithError(err).Warn("receive message failed")
			}
			return
		}
		select {
		case in <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// dispatch invokes the processor for each inbound message and pushes the
// outcome onto the ordered hand-off queue. It stops at the first error.
func (s *Service) dispatch(ctx context.Context, in <-chan *extprocv3.ProcessingRequest, out chan<- result, streamLogger logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			streamLogger.WithFields(log.ProcessingRequestToFields(msg)).Debug("dispatching message")
			response, err := s.handleMessage(ctx, msg)
			s.count(msg, err)
			if err != nil {
				streamLogger.WithFields(log.ProcessingRequestToFields(msg)).WithError(err).Error("processing message failed")
			}
			select {
			case out <- result{response: response, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// handleMessage routes the message to the processor method matching its
// populated phase variant. Trailers and messages with no recognized
// variant pass through with an empty response and no processor call.
func (s *Service) handleMessage(ctx context.Context, msg *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	switch msg.GetRequest().(type) {
	case *extprocv3.ProcessingRequest_RequestHeaders:
		return s.processor.ProcessRequestHeaders(ctx, msg)
	case *extprocv3.ProcessingRequest_ResponseHeaders:
		return s.processor.ProcessResponseHeaders(ctx, msg)
	case *extprocv3.ProcessingRequest_RequestBody:
		return s.processor.ProcessRequestBody(ctx, msg)
	case *extprocv3.ProcessingRequest_ResponseBody:
		return s.processor.ProcessResponseBody(ctx, msg)
	default:
		return &extprocv3.ProcessingResponse{}, nil
	}
}

func (s *Service) count(msg *extprocv3.ProcessingRequest, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.MessagesTotal.WithLabelValues(log.Phase(msg), outcome).Inc()
}

// statusFromProcessingError maps the closed processor error taxonomy to
// a terminal stream status.
func statusFromProcessingError(err error) error {
	var perr *processor.Error
	if errors.As(err, &perr) {
		switch perr.Reason {
		case processor.ReasonPermissionDenied:
			return status.Error(codes.PermissionDenied, perr.Message)
		default:
			return status.Error(codes.Internal, perr.Message)
		}
	}
	return status.Error(codes.Internal, err.Error())
}

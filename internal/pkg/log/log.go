// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// Phase names the populated variant of a processing request.
func Phase(msg *extprocv3.ProcessingRequest) string {
	switch msg.GetRequest().(type) {
	case *extprocv3.ProcessingRequest_RequestHeaders:
		return "request_headers"
	case *extprocv3.ProcessingRequest_ResponseHeaders:
		return "response_headers"
	case *extprocv3.ProcessingRequest_RequestBody:
		return "request_body"
	case *extprocv3.ProcessingRequest_ResponseBody:
		return "response_body"
	case *extprocv3.ProcessingRequest_RequestTrailers:
		return "request_trailers"
	case *extprocv3.ProcessingRequest_ResponseTrailers:
		return "response_trailers"
	default:
		return "unknown"
	}
}

// ProcessingRequestToFields extracts log fields from a processing request.
func ProcessingRequestToFields(msg *extprocv3.ProcessingRequest) logrus.Fields {
	fields := logrus.Fields{
		"phase": Phase(msg),
	}
	switch r := msg.GetRequest().(type) {
	case *extprocv3.ProcessingRequest_RequestHeaders:
		fields["headers"] = len(r.RequestHeaders.GetHeaders().GetHeaders())
		fields["end_of_stream"] = r.RequestHeaders.GetEndOfStream()
	case *extprocv3.ProcessingRequest_ResponseHeaders:
		fields["headers"] = len(r.ResponseHeaders.GetHeaders().GetHeaders())
		fields["end_of_stream"] = r.ResponseHeaders.GetEndOfStream()
	case *extprocv3.ProcessingRequest_RequestBody:
		fields["body_bytes"] = len(r.RequestBody.GetBody())
		fields["end_of_stream"] = r.RequestBody.GetEndOfStream()
	case *extprocv3.ProcessingRequest_ResponseBody:
		fields["body_bytes"] = len(r.ResponseBody.GetBody())
		fields["end_of_stream"] = r.ResponseBody.GetEndOfStream()
	}
	return fields
}

// ProcessingResponseToFields extracts log fields from a processing response.
func ProcessingResponseToFields(msg *extprocv3.ProcessingResponse) logrus.Fields {
	fields := logrus.Fields{}
	switch {
	case msg.GetImmediateResponse() != nil:
		fields["response"] = "immediate"
		fields["status"] = msg.GetImmediateResponse().GetStatus().GetCode()
	case msg.GetRequestHeaders() != nil:
		fields["response"] = "request_headers"
	case msg.GetResponseHeaders() != nil:
		fields["response"] = "response_headers"
	case msg.GetRequestBody() != nil:
		fields["response"] = "request_body"
	case msg.GetResponseBody() != nil:
		fields["response"] = "response_body"
	default:
		fields["response"] = "passthrough"
	}
	return fields
}

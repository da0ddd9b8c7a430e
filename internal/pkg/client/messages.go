package client

import (
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
)

// NewRequestHeaders builds a request-headers processing request.
func NewRequestHeaders(headers map[string]string) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_RequestHeaders{
			RequestHeaders: &extprocv3.HttpHeaders{Headers: headerMap(headers)},
		},
	}
}

// NewResponseHeaders builds a response-headers processing request.
func NewResponseHeaders(headers map[string]string) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_ResponseHeaders{
			ResponseHeaders: &extprocv3.HttpHeaders{Headers: headerMap(headers)},
		},
	}
}

// NewRequestBody builds a request-body processing request.
func NewRequestBody(body []byte, endOfStream bool) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_RequestBody{
			RequestBody: &extprocv3.HttpBody{Body: body, EndOfStream: endOfStream},
		},
	}
}

// NewResponseBody builds a response-body processing request.
func NewResponseBody(body []byte, endOfStream bool) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_ResponseBody{
			ResponseBody: &extprocv3.HttpBody{Body: body, EndOfStream: endOfStream},
		},
	}
}

// NewRequestTrailers builds a request-trailers processing request.
// The dispatcher passes trailers through untouched.
func NewRequestTrailers(trailers map[string]string) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_RequestTrailers{
			RequestTrailers: &extprocv3.HttpTrailers{Trailers: headerMap(trailers)},
		},
	}
}

func headerMap(headers map[string]string) *corev3.HeaderMap {
	m := &corev3.HeaderMap{}
	for name, value := range headers {
		m.Headers = append(m.Headers, &corev3.HeaderValue{
			Key:      name,
			RawValue: []byte(value),
		})
	}
	return m
}

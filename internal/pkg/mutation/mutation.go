// Package mutation builds ext_proc processing responses.
//
// The builders construct the Envoy protobuf shapes for the common
// traffic mutations: header add/remove, body replace or clear, and
// immediate responses that short-circuit the exchange. They are pure
// construction helpers with no I/O; phase correctness (isRequest
// matching the phase being dispatched) is the caller's responsibility.
package mutation

import (
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
)

// Header is a single header name/value pair.
type Header struct {
	Name  string
	Value string
}

// AddHeaderMutation builds a headers response that sets the given
// headers and removes the named ones. The phase tag of the response is
// selected by isRequest. Empty add and remove lists are legal and
// produce a no-op mutation. The zero appendAction is the protocol
// default.
func AddHeaderMutation(add []Header, remove []string, clearRouteCache bool, isRequest bool, appendAction corev3.HeaderValueOption_HeaderAppendAction) *extprocv3.ProcessingResponse {
	headers := &extprocv3.HeadersResponse{
		Response: &extprocv3.CommonResponse{
			HeaderMutation:  headerMutation(add, remove, appendAction),
			ClearRouteCache: clearRouteCache,
		},
	}
	if isRequest {
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_RequestHeaders{RequestHeaders: headers},
		}
	}
	return &extprocv3.ProcessingResponse{
		Response: &extprocv3.ProcessingResponse_ResponseHeaders{ResponseHeaders: headers},
	}
}

// AddBodyStringMutation builds a body response that replaces the body
// with the given string.
func AddBodyStringMutation(body string, isRequest bool, clearRouteCache bool) *extprocv3.ProcessingResponse {
	return bodyResponse(&extprocv3.BodyMutation{
		Mutation: &extprocv3.BodyMutation_Body{Body: []byte(body)},
	}, isRequest, clearRouteCache)
}

// AddBodyClearMutation builds a body response that clears the body.
// This is the explicit clear-body wire shape, not a replacement with
// zero bytes.
func AddBodyClearMutation(isRequest bool, clearRouteCache bool) *extprocv3.ProcessingResponse {
	return bodyResponse(&extprocv3.BodyMutation{
		Mutation: &extprocv3.BodyMutation_ClearBody{ClearBody: true},
	}, isRequest, clearRouteCache)
}

// AddImmediateResponse builds a response that short-circuits the
// exchange with the given HTTP status, headers and body. The details
// field stays empty and no trailer gRPC status is set.
func AddImmediateResponse(statusCode uint32, headers []Header, body []byte, appendAction corev3.HeaderValueOption_HeaderAppendAction) *extprocv3.ProcessingResponse {
	return &extprocv3.ProcessingResponse{
		Response: &extprocv3.ProcessingResponse_ImmediateResponse{
			ImmediateResponse: &extprocv3.ImmediateResponse{
				Status: &typev3.HttpStatus{
					Code: typev3.StatusCode(statusCode),
				},
				Headers: headerMutation(headers, nil, appendAction),
				Body:    body,
			},
		},
	}
}

// AddRedirectResponse builds an immediate response that redirects the
// client to location with the given redirect status code.
func AddRedirectResponse(statusCode uint32, location string, appendAction corev3.HeaderValueOption_HeaderAppendAction) *extprocv3.ProcessingResponse {
	return AddImmediateResponse(statusCode, []Header{{Name: "Location", Value: location}}, nil, appendAction)
}

func bodyResponse(m *extprocv3.BodyMutation, isRequest bool, clearRouteCache bool) *extprocv3.ProcessingResponse {
	body := &extprocv3.BodyResponse{
		Response: &extprocv3.CommonResponse{
			BodyMutation:    m,
			ClearRouteCache: clearRouteCache,
		},
	}
	if isRequest {
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_RequestBody{RequestBody: body},
		}
	}
	return &extprocv3.ProcessingResponse{
		Response: &extprocv3.ProcessingResponse_ResponseBody{ResponseBody: body},
	}
}

func headerMutation(add []Header, remove []string, appendAction corev3.HeaderValueOption_HeaderAppendAction) *extprocv3.HeaderMutation {
	m := &extprocv3.HeaderMutation{
		RemoveHeaders: remove,
	}
	for _, h := range add {
		m.SetHeaders = append(m.SetHeaders, &corev3.HeaderValueOption{
			Header: &corev3.HeaderValue{
				Key:      h.Name,
				RawValue: []byte(h.Value),
			},
			AppendAction: appendAction,
		})
	}
	return m
}

package connector

import (
	"context"
	"fmt"
	"net/http"
)

// Operation is the per-(connector, flow) protocol adapter contract. An
// operation is immutable after construction and shared across calls; all
// per-call state travels on the RouterData envelope.
type Operation[F Flow, RCD ResourceData, Req any, Resp any] interface {
	// Method is the fixed HTTP method for this flow.
	Method() string

	// URL builds the endpoint, possibly branching on request fields.
	URL(rd *RouterData[F, RCD, Req, Resp]) (string, error)

	// Headers returns all headers including auth; content type is added by
	// the transport from the encoded Content.
	Headers(rd *RouterData[F, RCD, Req, Resp]) ([]Header, error)

	// Content builds the encoded request body. A nil Content means no body.
	Content(rd *RouterData[F, RCD, Req, Resp]) (*Content, error)

	// HandleResponse decodes a 2xx body and merges status, identifiers and
	// any logical failure into the envelope. Providers that signal declines
	// inside 200 responses set rd.Error here.
	HandleResponse(rd *RouterData[F, RCD, Req, Resp], statusCode int, body []byte) error

	// ErrorResponse parses a 4xx body into the normalized error.
	ErrorResponse(statusCode int, body []byte) ErrorResponse
}

// ServerErrorResponder is implemented by operations that need different
// parsing for 5xx bodies than for 4xx bodies.
type ServerErrorResponder interface {
	ErrorResponse5xx(statusCode int, body []byte) ErrorResponse
}

// CaptureSyncMethod tells the orchestrator whether a connector syncs partial
// captures individually or as a batch.
type CaptureSyncMethod string

const (
	CaptureSyncIndividual CaptureSyncMethod = "individual"
	CaptureSyncBulk       CaptureSyncMethod = "bulk"
)

// MultipleCaptureSyncer is implemented by PSync operations of connectors that
// support partial/multiple captures.
type MultipleCaptureSyncer interface {
	MultipleCaptureSyncMethod() CaptureSyncMethod
}

// Execute runs one flow invocation end to end: headers, body, send,
// preprocess/decode, status mapping. The steps are strictly sequential and
// the envelope is exclusively owned by this call. A populated rd.Error with a
// nil returned error means the provider answered and reported a failure.
func Execute[F Flow, RCD ResourceData, Req any, Resp any](
	ctx context.Context,
	client *HTTPClient,
	connectorName string,
	op Operation[F, RCD, Req, Resp],
	rd *RouterData[F, RCD, Req, Resp],
) error {
	if op == nil {
		return NewError(ErrNotImplemented, connectorName, fmt.Sprintf("flow %s is not implemented", FlowName[F]()))
	}

	endpoint, err := op.URL(rd)
	if err != nil {
		return fmt.Errorf("%s: building url: %w", FlowName[F](), err)
	}
	headers, err := op.Headers(rd)
	if err != nil {
		return fmt.Errorf("%s: building headers: %w", FlowName[F](), err)
	}
	content, err := op.Content(rd)
	if err != nil {
		return fmt.Errorf("%s: building request body: %w", FlowName[F](), err)
	}

	resp, err := client.Send(ctx, &RequestSpec{
		Method:  op.Method(),
		URL:     endpoint,
		Headers: headers,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", FlowName[F](), err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		var er ErrorResponse
		if responder, ok := op.(ServerErrorResponder); ok {
			er = responder.ErrorResponse5xx(resp.StatusCode, resp.Body)
		} else {
			er = op.ErrorResponse(resp.StatusCode, resp.Body)
		}
		rd.Error = &er
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		er := op.ErrorResponse(resp.StatusCode, resp.Body)
		rd.Error = &er
		return nil
	default:
		if err := op.HandleResponse(rd, resp.StatusCode, resp.Body); err != nil {
			return fmt.Errorf("%s: handling response: %w", FlowName[F](), err)
		}
		return nil
	}
}

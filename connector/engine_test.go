package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// echoOperation is a minimal PSync operation used to drive Execute.
type echoOperation struct {
	baseURL     string
	failURL     bool
	failContent bool
	with5xx     bool
}

func (echoOperation) Method() string { return http.MethodPost }

func (o echoOperation) URL(_ *RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]) (string, error) {
	if o.failURL {
		return "", MissingField("echo", "connector_transaction_id")
	}
	return o.baseURL + "/sync", nil
}

func (echoOperation) Headers(_ *RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]) ([]Header, error) {
	return []Header{{Name: "X-Test", Value: "yes"}}, nil
}

func (o echoOperation) Content(_ *RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]) (*Content, error) {
	if o.failContent {
		return nil, NewError(ErrRequestEncodingFailed, "echo", "boom")
	}
	return JSONContent("echo", map[string]string{"probe": "ping"})
}

func (echoOperation) HandleResponse(rd *RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData], statusCode int, body []byte) error {
	rd.Resource.Status = StatusCharged
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ResourceID = "echo-1"
	return nil
}

func (echoOperation) ErrorResponse(statusCode int, body []byte) ErrorResponse {
	return ErrorResponse{StatusCode: statusCode, Code: "echo_error", Message: "client error", RawResponse: string(body)}
}

// fiveHundredAware adds dedicated 5xx parsing on top of echoOperation.
type fiveHundredAware struct{ echoOperation }

func (fiveHundredAware) ErrorResponse5xx(statusCode int, body []byte) ErrorResponse {
	return ErrorResponse{StatusCode: statusCode, Code: "server_down", Message: "provider unavailable", RawResponse: string(body)}
}

func syncEnvelope() *RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData] {
	return &RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]{
		Response: &PaymentsResponseData{},
	}
}

func TestExecuteSuccessPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("expected operation headers to be sent")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected content type from the encoded body, got %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"probe":"ping"}` {
			t.Errorf("unexpected request body %s", body)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	rd := syncEnvelope()
	err := Execute(context.Background(), NewHTTPClient(5*time.Second), "echo", echoOperation{baseURL: server.URL}, rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Resource.Status != StatusCharged {
		t.Errorf("expected handler to run, got status %s", rd.Resource.Status)
	}
	if rd.Error != nil {
		t.Errorf("unexpected error response %+v", rd.Error)
	}
}

func TestExecuteNilOperation(t *testing.T) {
	rd := syncEnvelope()
	err := Execute[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData](
		context.Background(), NewHTTPClient(5*time.Second), "echo", nil, rd)
	if err == nil {
		t.Fatal("expected nil operation to fail")
	}
	if !IsKind(err, ErrNotImplemented) {
		t.Errorf("expected not-implemented, got %v", err)
	}
}

func TestExecuteRequestBuildingFailure(t *testing.T) {
	rd := syncEnvelope()
	err := Execute(context.Background(), NewHTTPClient(5*time.Second), "echo", echoOperation{failURL: true}, rd)
	if !IsKind(err, ErrMissingRequiredField) {
		t.Errorf("expected missing-required-field from URL building, got %v", err)
	}

	rd = syncEnvelope()
	err = Execute(context.Background(), NewHTTPClient(5*time.Second), "echo", echoOperation{failContent: true}, rd)
	if !IsKind(err, ErrRequestEncodingFailed) {
		t.Errorf("expected request-encoding failure from body building, got %v", err)
	}
}

func TestExecuteClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"bad":"request"}`)
	}))
	defer server.Close()

	rd := syncEnvelope()
	err := Execute(context.Background(), NewHTTPClient(5*time.Second), "echo", echoOperation{baseURL: server.URL}, rd)
	if err != nil {
		t.Fatalf("a 4xx must not be a framework error, got %v", err)
	}
	if rd.Error == nil || rd.Error.Code != "echo_error" {
		t.Errorf("expected the 4xx parser to run, got %+v", rd.Error)
	}
	if rd.Error.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rd.Error.StatusCode)
	}
}

func TestExecuteServerErrorResponder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	rd := syncEnvelope()
	err := Execute(context.Background(), NewHTTPClient(5*time.Second), "echo",
		fiveHundredAware{echoOperation{baseURL: server.URL}}, rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Error == nil || rd.Error.Code != "server_down" {
		t.Errorf("expected the dedicated 5xx parser to run, got %+v", rd.Error)
	}

	// Without the responder the regular parser handles 5xx too.
	rd = syncEnvelope()
	if err := Execute(context.Background(), NewHTTPClient(5*time.Second), "echo", echoOperation{baseURL: server.URL}, rd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Error == nil || rd.Error.Code != "echo_error" {
		t.Errorf("expected fallback 4xx parser on 5xx, got %+v", rd.Error)
	}
}

func TestExecuteNetworkFailure(t *testing.T) {
	rd := syncEnvelope()
	err := Execute(context.Background(), NewHTTPClient(500*time.Millisecond), "echo",
		echoOperation{baseURL: "http://127.0.0.1:1"}, rd)
	if err == nil {
		t.Fatal("expected a transport failure")
	}
	if !IsKind(err, ErrNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestFlowNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{FlowName[Authorize](), "Authorize"},
		{FlowName[PSync](), "PSync"},
		{FlowName[Capture](), "Capture"},
		{FlowName[Void](), "Void"},
		{FlowName[Refund](), "Refund"},
		{FlowName[RSync](), "RSync"},
		{FlowName[SetupMandate](), "SetupMandate"},
		{FlowName[CreateOrder](), "CreateOrder"},
		{FlowName[Accept](), "Accept"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected flow name %s, got %s", tt.want, tt.got)
		}
	}
}

package fiserv

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paybridge/paybridge/connector"
)

const (
	testAPIKey    = "test-api-key"
	testMerchant  = "100008000"
	testAPISecret = "test-signing-secret"
)

func testAuth() connector.AuthType {
	return connector.NewSignatureKeyAuth(testAPIKey, testMerchant, testAPISecret)
}

func authorizeEnvelope() *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData] {
	return &connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]{
		Resource: connector.PaymentFlowData{
			ConnectorRequestReferenceID: "order-42",
			Status:                      connector.StatusStarted,
		},
		Request: connector.PaymentsAuthorizeData{
			Amount:        connector.MinorUnit(1250),
			Currency:      "USD",
			CaptureMethod: connector.CaptureManual,
			Card: connector.Card{
				Number:      "4005550000000019",
				ExpiryMonth: "02",
				ExpiryYear:  "2035",
				CVC:         "123",
			},
		},
		Response: &connector.PaymentsResponseData{},
		Auth:     testAuth(),
	}
}

// verifySignature recomputes the Commerce Hub HMAC from the received headers
// and body the way the provider would.
func verifySignature(t *testing.T, r *http.Request, body []byte) {
	t.Helper()
	clientRequestID := r.Header.Get("Client-Request-Id")
	timestamp := r.Header.Get("Timestamp")
	if clientRequestID == "" || timestamp == "" {
		t.Error("expected Client-Request-Id and Timestamp headers")
	}
	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write([]byte(testAPIKey + clientRequestID + timestamp + string(body)))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if r.Header.Get("Authorization") != expected {
		t.Error("request signature does not match the transmitted body")
	}
}

func TestAuthorizeSignedAndAuthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("Api-Key") != testAPIKey {
			t.Errorf("expected api key header, got %q", r.Header.Get("Api-Key"))
		}
		verifySignature(t, r, body)
		if !strings.Contains(string(body), `"total":12.5`) {
			t.Errorf("expected major-unit amount in body, got %s", body)
		}
		if !strings.Contains(string(body), `"merchantId":"100008000"`) {
			t.Errorf("expected merchant id in body, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"gatewayResponse":{"transactionState":"AUTHORIZED","transactionProcessingDetails":{"orderId":"ORD1","transactionId":"TXN1"}}}`)
	}))
	defer server.Close()

	f := New(connector.Endpoints{BaseURL: server.URL}).(*Fiserv)
	rd := authorizeEnvelope()

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.Authorize(), rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Error != nil {
		t.Fatalf("unexpected error response: %+v", rd.Error)
	}
	if rd.Resource.Status != connector.StatusAuthorized {
		t.Errorf("expected authorized, got %s", rd.Resource.Status)
	}
	if rd.Response.ResourceID != "TXN1" {
		t.Errorf("expected transaction id TXN1, got %s", rd.Response.ResourceID)
	}
	if rd.Response.ConnectorResponseReferenceID != "ORD1" {
		t.Errorf("expected order id ORD1, got %s", rd.Response.ConnectorResponseReferenceID)
	}
}

func TestAuthorizeDeclinedInsideOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"gatewayResponse":{"transactionState":"DECLINED","transactionProcessingDetails":{"orderId":"ORD2","transactionId":"TXN2"}},"processorResponseDetails":{"responseCode":"005","responseMessage":"Do not honor"}}`)
	}))
	defer server.Close()

	f := New(connector.Endpoints{BaseURL: server.URL}).(*Fiserv)
	rd := authorizeEnvelope()

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.Authorize(), rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Error == nil {
		t.Fatal("expected a logical decline inside HTTP 200")
	}
	if rd.Error.Code != "005" {
		t.Errorf("expected processor response code, got %q", rd.Error.Code)
	}
	if rd.Error.ConnectorTransactionID != "TXN2" {
		t.Errorf("expected gateway transaction id on error, got %q", rd.Error.ConnectorTransactionID)
	}
	if rd.Resource.Status != connector.StatusFailure {
		t.Errorf("expected failure, got %s", rd.Resource.Status)
	}
}

func TestPSyncUsesLastInquiryEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/transaction-inquiry") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"gatewayResponse":{"transactionState":"AUTHORIZED","transactionProcessingDetails":{"transactionId":"TXN3"}}},{"gatewayResponse":{"transactionState":"CAPTURED","transactionProcessingDetails":{"transactionId":"TXN3"}}}]`)
	}))
	defer server.Close()

	f := New(connector.Endpoints{BaseURL: server.URL}).(*Fiserv)
	rd := &connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]{
		Request:  connector.PaymentsSyncData{ConnectorTransactionID: "TXN3"},
		Response: &connector.PaymentsResponseData{},
		Auth:     testAuth(),
	}

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.PSync(), rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Resource.Status != connector.StatusCharged {
		t.Errorf("expected charged from latest entry, got %s", rd.Resource.Status)
	}
}

func TestRefundSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"gatewayResponse":{"transactionState":"CAPTURED","transactionProcessingDetails":{"transactionId":"RFD1"}}}`)
	}))
	defer server.Close()

	f := New(connector.Endpoints{BaseURL: server.URL}).(*Fiserv)
	rd := &connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]{
		Request: connector.RefundsData{
			ConnectorTransactionID: "TXN1",
			RefundAmount:           connector.MinorUnit(500),
			Currency:               "USD",
		},
		Response: &connector.RefundsResponseData{},
		Auth:     testAuth(),
	}

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.Refund(), rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Response.RefundStatus != connector.RefundSuccess {
		t.Errorf("expected refund success, got %s", rd.Response.RefundStatus)
	}
	if rd.Response.ConnectorRefundID != "RFD1" {
		t.Errorf("expected refund id RFD1, got %s", rd.Response.ConnectorRefundID)
	}
}

func TestErrorResponseParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":[{"type":"APIM","code":"400","field":"amount.total","message":"Invalid amount"}]}`)
	}))
	defer server.Close()

	f := New(connector.Endpoints{BaseURL: server.URL}).(*Fiserv)
	rd := authorizeEnvelope()

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.Authorize(), rd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Error == nil {
		t.Fatal("expected an error response")
	}
	if rd.Error.Code != "400" || rd.Error.Message != "Invalid amount" {
		t.Errorf("unexpected parsed error %+v", rd.Error)
	}
	if rd.Error.Reason != "amount.total" {
		t.Errorf("expected offending field in reason, got %q", rd.Error.Reason)
	}
}

func TestWrongAuthShape(t *testing.T) {
	f := New(connector.Endpoints{}).(*Fiserv)
	rd := authorizeEnvelope()
	rd.Auth = connector.NewHeaderKeyAuth("just-a-key")

	err := connector.Execute(context.Background(), connector.NewHTTPClient(5*time.Second), connectorName, f.Authorize(), rd)
	if err == nil {
		t.Fatal("expected auth resolution to fail")
	}
	if !connector.IsKind(err, connector.ErrFailedToObtainAuthType) {
		t.Errorf("expected failed-to-obtain-auth-type error, got %v", err)
	}
}

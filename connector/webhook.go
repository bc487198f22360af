package connector

import (
	"net/http"
	"net/url"
)

// EventClass is the coarse classification of an incoming webhook.
type EventClass string

const (
	ClassPayment EventClass = "payment"
	ClassRefund  EventClass = "refund"
	ClassDispute EventClass = "dispute"
	ClassUnknown EventClass = "unknown"
)

// IncomingWebhook is the raw provider-initiated HTTP callback.
type IncomingWebhook struct {
	Method  string
	URI     string
	Headers http.Header
	Query   url.Values
	Body    []byte
}

// WebhookSecrets are the merchant-provisioned secrets used for source
// verification (HMAC key, basic-auth credentials).
type WebhookSecrets struct {
	Secret           Secret
	AdditionalSecret Secret
}

// WebhookPaymentDetails is the normalized result of a payment webhook.
type WebhookPaymentDetails struct {
	ConnectorTransactionID string
	Status                 AttemptStatus
	Amount                 MinorUnit
	Currency               Currency
	ErrorCode              string
	ErrorMessage           string
}

// WebhookRefundDetails is the normalized result of a refund webhook.
type WebhookRefundDetails struct {
	ConnectorRefundID      string
	ConnectorTransactionID string
	Status                 RefundStatus
	Amount                 MinorUnit
	Currency               Currency
}

// WebhookDisputeDetails is the normalized result of a dispute webhook.
type WebhookDisputeDetails struct {
	ConnectorDisputeID     string
	ConnectorTransactionID string
	Stage                  DisputeStage
	Status                 DisputeStatus
	Amount                 MinorUnit
	Currency               Currency
	Reason                 string
}

// WebhookHandler is the inbound sub-protocol of a connector: classify the
// event, verify its origin and map the payload into the internal model.
// Verification defaults to "unimplemented", never to "accepted": a handler
// that cannot verify must return a WebhooksNotImplemented error.
type WebhookHandler interface {
	EventClass(req *IncomingWebhook) (EventClass, error)
	VerifySource(req *IncomingWebhook, secrets WebhookSecrets, auth AuthType) (bool, error)
	ProcessPaymentWebhook(req *IncomingWebhook, secrets WebhookSecrets, auth AuthType) (*WebhookPaymentDetails, error)
	ProcessRefundWebhook(req *IncomingWebhook, secrets WebhookSecrets, auth AuthType) (*WebhookRefundDetails, error)
	ProcessDisputeWebhook(req *IncomingWebhook, secrets WebhookSecrets, auth AuthType) (*WebhookDisputeDetails, error)
}

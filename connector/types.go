package connector

import "time"

// AttemptStatus is the internal state machine for a payment attempt. It is
// the normalization target for every connector-specific status vocabulary.
type AttemptStatus string

const (
	StatusStarted                     AttemptStatus = "started"
	StatusAuthenticationPending       AttemptStatus = "authentication_pending"
	StatusAuthenticationFailed        AttemptStatus = "authentication_failed"
	StatusAuthenticationSuccessful    AttemptStatus = "authentication_successful"
	StatusAuthorizing                 AttemptStatus = "authorizing"
	StatusAuthorized                  AttemptStatus = "authorized"
	StatusAuthorizationFailed         AttemptStatus = "authorization_failed"
	StatusCaptureInitiated            AttemptStatus = "capture_initiated"
	StatusCharged                     AttemptStatus = "charged"
	StatusPartialCharged              AttemptStatus = "partial_charged"
	StatusCaptureFailed               AttemptStatus = "capture_failed"
	StatusVoidInitiated               AttemptStatus = "void_initiated"
	StatusVoided                      AttemptStatus = "voided"
	StatusVoidFailed                  AttemptStatus = "void_failed"
	StatusPending                     AttemptStatus = "pending"
	StatusFailure                     AttemptStatus = "failure"
	StatusUnresolved                  AttemptStatus = "unresolved"
	StatusAutoRefunded                AttemptStatus = "auto_refunded"
	StatusCodInitiated                AttemptStatus = "cod_initiated"
	StatusRouterDeclined              AttemptStatus = "router_declined"
	StatusConfirmationAwaited         AttemptStatus = "confirmation_awaited"
	StatusPaymentMethodAwaited        AttemptStatus = "payment_method_awaited"
	StatusDeviceDataCollectionPending AttemptStatus = "device_data_collection_pending"
)

// IsTerminal reports whether the attempt can no longer change through a Sync.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case StatusCharged, StatusFailure, StatusVoided, StatusAutoRefunded:
		return true
	}
	return false
}

// RefundStatus is the internal state machine for a refund.
type RefundStatus string

const (
	RefundPending RefundStatus = "pending"
	RefundSuccess RefundStatus = "success"
	RefundFailure RefundStatus = "failure"
)

// DisputeStage and DisputeStatus model the dispute lifecycle reported by
// connectors through dispute flows and webhooks.
type DisputeStage string

const (
	StagePreDispute     DisputeStage = "pre_dispute"
	StageActiveDispute  DisputeStage = "dispute"
	StagePreArbitration DisputeStage = "pre_arbitration"
)

type DisputeStatus string

const (
	DisputeOpened     DisputeStatus = "dispute_opened"
	DisputeChallenged DisputeStatus = "dispute_challenged"
	DisputeAccepted   DisputeStatus = "dispute_accepted"
	DisputeWon        DisputeStatus = "dispute_won"
	DisputeLost       DisputeStatus = "dispute_lost"
)

// CaptureMethod selects how funds are captured after authorization. An empty
// value defaults to manual capture.
type CaptureMethod string

const (
	CaptureAutomatic      CaptureMethod = "automatic"
	CaptureManual         CaptureMethod = "manual"
	CaptureManualMultiple CaptureMethod = "manual_multiple"
	CaptureScheduled      CaptureMethod = "scheduled"
)

// IsAutomatic reports whether authorization is the terminal success step.
func (c CaptureMethod) IsAutomatic() bool {
	return c == CaptureAutomatic
}

// Card carries the payment instrument. The sensitive fields are wrapped in
// Secret so they redact on serialization and logging.
type Card struct {
	Number      Secret `json:"number"`
	ExpiryMonth Secret `json:"expiryMonth"`
	ExpiryYear  Secret `json:"expiryYear"`
	CVC         Secret `json:"cvc"`
	HolderName  string `json:"holderName,omitempty"`
	Network     string `json:"network,omitempty"`
}

// Address is the billing address subset connectors commonly require.
type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// RedirectForm describes a customer redirection demanded by the provider
// (3DS challenge, hosted payment page, UPI collect).
type RedirectForm struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ResourceData is the closed set of resource-common-data shapes. Exactly one
// shape pairs with each flow.
type ResourceData interface {
	resourceData()
}

// PaymentFlowData carries cross-flow payment state for one call.
type PaymentFlowData struct {
	MerchantID                  string
	PaymentID                   string
	AttemptID                   string
	Status                      AttemptStatus
	ConnectorRequestReferenceID string
	Description                 string
	ReturnURL                   string
	AccessToken                 string
	ConnectorMetadata           map[string]string
	RawConnectorResponse        string
	TestMode                    bool
	CreatedAt                   time.Time
}

func (PaymentFlowData) resourceData() {}

// RefundFlowData carries cross-flow refund state for one call.
type RefundFlowData struct {
	MerchantID                  string
	PaymentID                   string
	RefundID                    string
	Status                      RefundStatus
	ConnectorRequestReferenceID string
	RawConnectorResponse        string
	TestMode                    bool
}

func (RefundFlowData) resourceData() {}

// DisputeFlowData carries cross-flow dispute state for one call.
type DisputeFlowData struct {
	MerchantID           string
	PaymentID            string
	DisputeID            string
	ConnectorDisputeID   string
	Stage                DisputeStage
	Status               DisputeStatus
	RawConnectorResponse string
	TestMode             bool
}

func (DisputeFlowData) resourceData() {}

// Flow-specific request payloads.

// PaymentsAuthorizeData is the Authorize flow input.
type PaymentsAuthorizeData struct {
	Amount               MinorUnit
	Currency             Currency
	Card                 Card
	CaptureMethod        CaptureMethod
	Email                string
	PhoneNumber          string
	BillingAddress       *Address
	StatementDescriptor  string
	ReturnURL            string
	SetupFutureUsage     bool
	NetworkTransactionID string
	OrderID              string
	PaymentMethodType    string
	SessionToken         string
	BrowserAcceptHeader  string
	BrowserUserAgent     string
	ClientIP             string
}

// PaymentsSyncData is the PSync flow input.
type PaymentsSyncData struct {
	ConnectorTransactionID string
	CaptureMethod          CaptureMethod
	Amount                 MinorUnit
	Currency               Currency
	EncodedData            string
}

// PaymentsCaptureData is the Capture flow input.
type PaymentsCaptureData struct {
	ConnectorTransactionID string
	AmountToCapture        MinorUnit
	Currency               Currency
	MultipleCaptureCount   int
}

// PaymentsCancelData is the Void flow input.
type PaymentsCancelData struct {
	ConnectorTransactionID string
	CancellationReason     string
}

// SetupMandateData is the SetupMandate flow input.
type SetupMandateData struct {
	Currency    Currency
	Card        Card
	Email       string
	ReturnURL   string
	Description string
}

// CreateOrderData is the CreateOrder flow input.
type CreateOrderData struct {
	Amount    MinorUnit
	Currency  Currency
	Reference string
	Notes     map[string]string
}

// SessionTokenData is the CreateSessionToken flow input.
type SessionTokenData struct {
	Amount      MinorUnit
	Currency    Currency
	CountryCode string
}

// RepeatPaymentData is the RepeatPayment flow input (merchant-initiated,
// keyed by a prior network transaction id or mandate reference).
type RepeatPaymentData struct {
	Amount               MinorUnit
	Currency             Currency
	NetworkTransactionID string
	MandateReference     string
	Description          string
}

// RefundsData is the Refund and RSync flow input.
type RefundsData struct {
	ConnectorTransactionID string
	ConnectorRefundID      string
	RefundAmount           MinorUnit
	Currency               Currency
	Reason                 string
}

// Dispute flow inputs.

type AcceptDisputeData struct {
	ConnectorDisputeID     string
	ConnectorTransactionID string
}

type DefendDisputeData struct {
	ConnectorDisputeID     string
	ConnectorTransactionID string
	DefenseReasonCode      string
}

type SubmitEvidenceData struct {
	ConnectorDisputeID     string
	ConnectorTransactionID string
	EvidenceText           string
	EvidenceDocument       []byte
	EvidenceType           string
}

// Flow-specific response payloads.

// PaymentsResponseData is produced by Authorize, PSync, Capture, Void,
// SetupMandate and RepeatPayment. The attempt status itself lives on
// PaymentFlowData; this carries the provider-side identifiers.
type PaymentsResponseData struct {
	ResourceID                   string
	Redirect                     *RedirectForm
	MandateReference             string
	NetworkTransactionID         string
	ConnectorResponseReferenceID string
	ConnectorMetadata            map[string]string
}

// RefundsResponseData is produced by Refund and RSync.
type RefundsResponseData struct {
	ConnectorRefundID string
	RefundStatus      RefundStatus
}

// DisputeResponseData is produced by the dispute flows.
type DisputeResponseData struct {
	ConnectorDisputeID string
	Stage              DisputeStage
	Status             DisputeStatus
	ConnectorStatus    string
}

// CreateOrderResponseData is produced by CreateOrder.
type CreateOrderResponseData struct {
	OrderID string
}

// SessionTokenResponseData is produced by CreateSessionToken.
type SessionTokenResponseData struct {
	SessionToken string
}

// RouterData is the generic envelope threaded through one flow invocation.
// It is created per call, exclusively owned by the adapter executing it, and
// discarded once the response is extracted.
type RouterData[F Flow, RCD ResourceData, Req any, Resp any] struct {
	Resource RCD
	Request  Req
	Response *Resp
	Error    *ErrorResponse
	Auth     AuthType
}

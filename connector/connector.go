package connector

// Per-flow operation signatures. The (flow, resource data, request, response)
// pairings below are the only valid ones; they are fixed here once and every
// adapter instantiates against them.
type (
	AuthorizeOperation          = Operation[Authorize, PaymentFlowData, PaymentsAuthorizeData, PaymentsResponseData]
	PSyncOperation              = Operation[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]
	CaptureOperation            = Operation[Capture, PaymentFlowData, PaymentsCaptureData, PaymentsResponseData]
	VoidOperation               = Operation[Void, PaymentFlowData, PaymentsCancelData, PaymentsResponseData]
	SetupMandateOperation       = Operation[SetupMandate, PaymentFlowData, SetupMandateData, PaymentsResponseData]
	CreateOrderOperation        = Operation[CreateOrder, PaymentFlowData, CreateOrderData, CreateOrderResponseData]
	CreateSessionTokenOperation = Operation[CreateSessionToken, PaymentFlowData, SessionTokenData, SessionTokenResponseData]
	RepeatPaymentOperation      = Operation[RepeatPayment, PaymentFlowData, RepeatPaymentData, PaymentsResponseData]
	RefundOperation             = Operation[Refund, RefundFlowData, RefundsData, RefundsResponseData]
	RSyncOperation              = Operation[RSync, RefundFlowData, RefundsData, RefundsResponseData]
	AcceptDisputeOperation      = Operation[Accept, DisputeFlowData, AcceptDisputeData, DisputeResponseData]
	DefendDisputeOperation      = Operation[DefendDispute, DisputeFlowData, DefendDisputeData, DisputeResponseData]
	SubmitEvidenceOperation     = Operation[SubmitEvidence, DisputeFlowData, SubmitEvidenceData, DisputeResponseData]
)

// Connector exposes one operation per flow it supports; a nil operation means
// the flow is intentionally unimplemented for this provider, which Execute
// reports as a NotImplemented error rather than a bug.
type Connector interface {
	// Name is the registry key of the connector.
	Name() string

	// RequiredCredentials describes the credential fields a merchant must
	// supply to use this connector.
	RequiredCredentials() []ConfigField

	Authorize() AuthorizeOperation
	PSync() PSyncOperation
	Capture() CaptureOperation
	Void() VoidOperation
	SetupMandate() SetupMandateOperation
	CreateOrder() CreateOrderOperation
	CreateSessionToken() CreateSessionTokenOperation
	RepeatPayment() RepeatPaymentOperation
	Refund() RefundOperation
	RSync() RSyncOperation
	AcceptDispute() AcceptDisputeOperation
	DefendDispute() DefendDisputeOperation
	SubmitEvidence() SubmitEvidenceOperation

	// Webhooks returns the incoming-webhook handler, or nil when the
	// connector has none.
	Webhooks() WebhookHandler
}

// Endpoints is the static per-connector configuration supplied externally:
// base URLs and auxiliary endpoints. It is immutable after construction.
type Endpoints struct {
	BaseURL        string
	SecondaryURL   string
	DisputeBaseURL string
	TestMode       bool
}

// BaseConnector supplies not-implemented defaults for every flow so adapters
// only override what their provider supports.
type BaseConnector struct{}

func (BaseConnector) RequiredCredentials() []ConfigField  { return nil }
func (BaseConnector) Authorize() AuthorizeOperation       { return nil }
func (BaseConnector) PSync() PSyncOperation               { return nil }
func (BaseConnector) Capture() CaptureOperation           { return nil }
func (BaseConnector) Void() VoidOperation                 { return nil }
func (BaseConnector) SetupMandate() SetupMandateOperation { return nil }
func (BaseConnector) CreateOrder() CreateOrderOperation   { return nil }
func (BaseConnector) CreateSessionToken() CreateSessionTokenOperation {
	return nil
}
func (BaseConnector) RepeatPayment() RepeatPaymentOperation   { return nil }
func (BaseConnector) Refund() RefundOperation                 { return nil }
func (BaseConnector) RSync() RSyncOperation                   { return nil }
func (BaseConnector) AcceptDispute() AcceptDisputeOperation   { return nil }
func (BaseConnector) DefendDispute() DefendDisputeOperation   { return nil }
func (BaseConnector) SubmitEvidence() SubmitEvidenceOperation { return nil }
func (BaseConnector) Webhooks() WebhookHandler                { return nil }

// SupportedFlows lists the flows a connector actually implements, derived
// from its non-nil operations.
func SupportedFlows(c Connector) []string {
	var flows []string
	if c.Authorize() != nil {
		flows = append(flows, FlowName[Authorize]())
	}
	if c.PSync() != nil {
		flows = append(flows, FlowName[PSync]())
	}
	if c.Capture() != nil {
		flows = append(flows, FlowName[Capture]())
	}
	if c.Void() != nil {
		flows = append(flows, FlowName[Void]())
	}
	if c.SetupMandate() != nil {
		flows = append(flows, FlowName[SetupMandate]())
	}
	if c.CreateOrder() != nil {
		flows = append(flows, FlowName[CreateOrder]())
	}
	if c.CreateSessionToken() != nil {
		flows = append(flows, FlowName[CreateSessionToken]())
	}
	if c.RepeatPayment() != nil {
		flows = append(flows, FlowName[RepeatPayment]())
	}
	if c.Refund() != nil {
		flows = append(flows, FlowName[Refund]())
	}
	if c.RSync() != nil {
		flows = append(flows, FlowName[RSync]())
	}
	if c.AcceptDispute() != nil {
		flows = append(flows, FlowName[Accept]())
	}
	if c.DefendDispute() != nil {
		flows = append(flows, FlowName[DefendDispute]())
	}
	if c.SubmitEvidence() != nil {
		flows = append(flows, FlowName[SubmitEvidence]())
	}
	return flows
}

package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CredentialStore supplies per-merchant connector credentials for one call.
// This layer never persists or logs the resolved values.
type CredentialStore interface {
	AuthFor(ctx context.Context, merchantID, connectorName string) (AuthType, WebhookSecrets, error)
}

// AuditEvent is the normalized fire-and-forget audit record emitted after a
// flow invocation completes.
type AuditEvent struct {
	RequestID  string    `json:"request_id"`
	MerchantID string    `json:"merchant_id"`
	Connector  string    `json:"connector"`
	Flow       string    `json:"flow_type"`
	Status     string    `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditPublisher publishes audit events. Publish failure must not fail the
// payment call.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent) error
}

// Logger is the minimal logging surface the service needs.
type Logger interface {
	Error(message string, fields map[string]any)
	Info(message string, fields map[string]any)
}

// Service dispatches flow invocations to connectors. It owns the single
// string-keyed connector lookup per call; everything past that point is
// statically typed.
type Service struct {
	registry  *Registry
	client    *HTTPClient
	endpoints map[string]Endpoints
	creds     CredentialStore
	audit     AuditPublisher
	logger    Logger
}

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Registry  *Registry
	Client    *HTTPClient
	Endpoints map[string]Endpoints
	Creds     CredentialStore
	Audit     AuditPublisher
	Logger    Logger
}

// NewService creates the dispatch service.
func NewService(cfg ServiceConfig) *Service {
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Service{
		registry:  registry,
		client:    client,
		endpoints: cfg.Endpoints,
		creds:     cfg.Creds,
		audit:     cfg.Audit,
		logger:    cfg.Logger,
	}
}

func (s *Service) resolve(ctx context.Context, merchantID, connectorName string) (Connector, AuthType, WebhookSecrets, error) {
	endpoints, ok := s.endpoints[connectorName]
	if !ok {
		return nil, AuthType{}, WebhookSecrets{}, NewError(ErrInvalidConfiguration, connectorName, "no endpoint configuration for connector")
	}
	conn, err := s.registry.CreateConnector(connectorName, endpoints)
	if err != nil {
		return nil, AuthType{}, WebhookSecrets{}, WrapError(ErrInvalidConfiguration, connectorName, "connector lookup failed", err)
	}
	auth, secrets, err := s.creds.AuthFor(ctx, merchantID, connectorName)
	if err != nil {
		return nil, AuthType{}, WebhookSecrets{}, fmt.Errorf("resolving credentials for merchant %s: %w", merchantID, err)
	}
	return conn, auth, secrets, nil
}

// publishAudit emits the audit event asynchronously; failures are logged at
// error level only.
func (s *Service) publishAudit(merchantID, connectorName, flow, status, errorCode string, started time.Time) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		RequestID:  uuid.New().String(),
		MerchantID: merchantID,
		Connector:  connectorName,
		Flow:       flow,
		Status:     status,
		ErrorCode:  errorCode,
		LatencyMS:  time.Since(started).Milliseconds(),
		Timestamp:  time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.Error("audit publish failed", map[string]any{
				"request_id": event.RequestID,
				"connector":  event.Connector,
				"flow":       event.Flow,
				"error":      err.Error(),
			})
		}
	}()
}

// AuthorizeParams is the shell-facing Authorize input.
type AuthorizeParams struct {
	MerchantID        string
	PaymentID         string
	ReferenceID       string
	Amount            MinorUnit
	Currency          Currency
	Card              Card
	CaptureMethod     CaptureMethod
	Email             string
	BillingAddress    *Address
	ReturnURL         string
	Description       string
	PaymentMethodType string
	OrderID           string
}

// PaymentResult is the shell-facing outcome of a payment flow.
type PaymentResult struct {
	Connector            string         `json:"connector"`
	Status               AttemptStatus  `json:"status"`
	ResourceID           string         `json:"resourceId,omitempty"`
	Redirect             *RedirectForm  `json:"redirect,omitempty"`
	NetworkTransactionID string         `json:"networkTransactionId,omitempty"`
	Error                *ErrorResponse `json:"error,omitempty"`
}

// RefundResult is the shell-facing outcome of a refund flow.
type RefundResult struct {
	Connector         string         `json:"connector"`
	ConnectorRefundID string         `json:"connectorRefundId,omitempty"`
	Status            RefundStatus   `json:"status"`
	Error             *ErrorResponse `json:"error,omitempty"`
}

// Authorize runs the Authorize flow on the named connector.
func (s *Service) Authorize(ctx context.Context, connectorName string, params AuthorizeParams) (*PaymentResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, params.MerchantID, connectorName)
	if err != nil {
		return nil, err
	}

	referenceID := params.ReferenceID
	if referenceID == "" {
		referenceID = uuid.New().String()
	}
	captureMethod := params.CaptureMethod
	if captureMethod == "" {
		captureMethod = CaptureManual
	}

	rd := &RouterData[Authorize, PaymentFlowData, PaymentsAuthorizeData, PaymentsResponseData]{
		Resource: PaymentFlowData{
			MerchantID:                  params.MerchantID,
			PaymentID:                   params.PaymentID,
			Status:                      StatusStarted,
			ConnectorRequestReferenceID: referenceID,
			Description:                 params.Description,
			ReturnURL:                   params.ReturnURL,
			TestMode:                    s.endpoints[connectorName].TestMode,
			CreatedAt:                   started,
		},
		Request: PaymentsAuthorizeData{
			Amount:            params.Amount,
			Currency:          params.Currency,
			Card:              params.Card,
			CaptureMethod:     captureMethod,
			Email:             params.Email,
			BillingAddress:    params.BillingAddress,
			ReturnURL:         params.ReturnURL,
			OrderID:           params.OrderID,
			PaymentMethodType: params.PaymentMethodType,
		},
		Response: &PaymentsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.Authorize(), rd); err != nil {
		s.publishAudit(params.MerchantID, connectorName, FlowName[Authorize](), "error", "", started)
		return nil, err
	}

	result := paymentResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(params.MerchantID, connectorName, FlowName[Authorize](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// SyncPayment runs the PSync flow.
func (s *Service) SyncPayment(ctx context.Context, connectorName, merchantID string, request PaymentsSyncData) (*PaymentResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[PSync, PaymentFlowData, PaymentsSyncData, PaymentsResponseData]{
		Resource: PaymentFlowData{MerchantID: merchantID, Status: StatusPending, CreatedAt: started},
		Request:  request,
		Response: &PaymentsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.PSync(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[PSync](), "error", "", started)
		return nil, err
	}

	result := paymentResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[PSync](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// CapturePayment runs the Capture flow.
func (s *Service) CapturePayment(ctx context.Context, connectorName, merchantID string, request PaymentsCaptureData) (*PaymentResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[Capture, PaymentFlowData, PaymentsCaptureData, PaymentsResponseData]{
		Resource: PaymentFlowData{MerchantID: merchantID, Status: StatusAuthorized, CreatedAt: started},
		Request:  request,
		Response: &PaymentsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.Capture(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[Capture](), "error", "", started)
		return nil, err
	}

	result := paymentResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[Capture](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// VoidPayment runs the Void flow.
func (s *Service) VoidPayment(ctx context.Context, connectorName, merchantID string, request PaymentsCancelData) (*PaymentResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[Void, PaymentFlowData, PaymentsCancelData, PaymentsResponseData]{
		Resource: PaymentFlowData{MerchantID: merchantID, Status: StatusAuthorized, CreatedAt: started},
		Request:  request,
		Response: &PaymentsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.Void(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[Void](), "error", "", started)
		return nil, err
	}

	result := paymentResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[Void](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// RefundPayment runs the Refund flow.
func (s *Service) RefundPayment(ctx context.Context, connectorName, merchantID string, request RefundsData) (*RefundResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[Refund, RefundFlowData, RefundsData, RefundsResponseData]{
		Resource: RefundFlowData{MerchantID: merchantID, Status: RefundPending},
		Request:  request,
		Response: &RefundsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.Refund(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[Refund](), "error", "", started)
		return nil, err
	}

	result := refundResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[Refund](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// SyncRefund runs the RSync flow.
func (s *Service) SyncRefund(ctx context.Context, connectorName, merchantID string, request RefundsData) (*RefundResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[RSync, RefundFlowData, RefundsData, RefundsResponseData]{
		Resource: RefundFlowData{MerchantID: merchantID, Status: RefundPending},
		Request:  request,
		Response: &RefundsResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.RSync(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[RSync](), "error", "", started)
		return nil, err
	}

	result := refundResult(connectorName, rd.Resource.Status, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[RSync](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// DisputeResult is the shell-facing outcome of a dispute flow.
type DisputeResult struct {
	Connector          string         `json:"connector"`
	ConnectorDisputeID string         `json:"connectorDisputeId,omitempty"`
	Stage              DisputeStage   `json:"stage,omitempty"`
	Status             DisputeStatus  `json:"status,omitempty"`
	ConnectorStatus    string         `json:"connectorStatus,omitempty"`
	Error              *ErrorResponse `json:"error,omitempty"`
}

// AcceptDispute runs the Accept flow, conceding the dispute to the customer.
func (s *Service) AcceptDispute(ctx context.Context, connectorName, merchantID string, request AcceptDisputeData) (*DisputeResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[Accept, DisputeFlowData, AcceptDisputeData, DisputeResponseData]{
		Resource: DisputeFlowData{MerchantID: merchantID, ConnectorDisputeID: request.ConnectorDisputeID},
		Request:  request,
		Response: &DisputeResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.AcceptDispute(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[Accept](), "error", "", started)
		return nil, err
	}

	result := disputeResult(connectorName, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[Accept](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// DefendDispute runs the DefendDispute flow with a provider defense reason.
func (s *Service) DefendDispute(ctx context.Context, connectorName, merchantID string, request DefendDisputeData) (*DisputeResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[DefendDispute, DisputeFlowData, DefendDisputeData, DisputeResponseData]{
		Resource: DisputeFlowData{MerchantID: merchantID, ConnectorDisputeID: request.ConnectorDisputeID},
		Request:  request,
		Response: &DisputeResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.DefendDispute(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[DefendDispute](), "error", "", started)
		return nil, err
	}

	result := disputeResult(connectorName, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[DefendDispute](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// SubmitEvidence runs the SubmitEvidence flow, attaching defense material.
func (s *Service) SubmitEvidence(ctx context.Context, connectorName, merchantID string, request SubmitEvidenceData) (*DisputeResult, error) {
	started := time.Now()
	conn, auth, _, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	rd := &RouterData[SubmitEvidence, DisputeFlowData, SubmitEvidenceData, DisputeResponseData]{
		Resource: DisputeFlowData{MerchantID: merchantID, ConnectorDisputeID: request.ConnectorDisputeID},
		Request:  request,
		Response: &DisputeResponseData{},
		Auth:     auth,
	}

	if err := Execute(ctx, s.client, connectorName, conn.SubmitEvidence(), rd); err != nil {
		s.publishAudit(merchantID, connectorName, FlowName[SubmitEvidence](), "error", "", started)
		return nil, err
	}

	result := disputeResult(connectorName, rd.Response, rd.Error)
	s.publishAudit(merchantID, connectorName, FlowName[SubmitEvidence](), string(result.Status), errorCode(rd.Error), started)
	return result, nil
}

// WebhookResult is the shell-facing outcome of an incoming webhook.
type WebhookResult struct {
	Connector string                 `json:"connector"`
	Class     EventClass             `json:"class"`
	Payment   *WebhookPaymentDetails `json:"payment,omitempty"`
	Refund    *WebhookRefundDetails  `json:"refund,omitempty"`
	Dispute   *WebhookDisputeDetails `json:"dispute,omitempty"`
}

// HandleWebhook verifies and processes an incoming provider webhook.
func (s *Service) HandleWebhook(ctx context.Context, connectorName, merchantID string, req *IncomingWebhook) (*WebhookResult, error) {
	started := time.Now()
	conn, auth, secrets, err := s.resolve(ctx, merchantID, connectorName)
	if err != nil {
		return nil, err
	}

	handler := conn.Webhooks()
	if handler == nil {
		return nil, NewError(ErrWebhooksNotImplemented, connectorName, "connector has no webhook handler")
	}

	verified, err := handler.VerifySource(req, secrets, auth)
	if err != nil {
		return nil, fmt.Errorf("verifying webhook source: %w", err)
	}
	if !verified {
		return nil, NewError(ErrWebhookSourceVerification, connectorName, "webhook signature verification failed")
	}

	class, err := handler.EventClass(req)
	if err != nil {
		return nil, fmt.Errorf("classifying webhook event: %w", err)
	}

	result := &WebhookResult{Connector: connectorName, Class: class}
	switch class {
	case ClassPayment:
		details, err := handler.ProcessPaymentWebhook(req, secrets, auth)
		if err != nil {
			return nil, fmt.Errorf("processing payment webhook: %w", err)
		}
		result.Payment = details
		s.publishAudit(merchantID, connectorName, "PaymentWebhook", string(details.Status), details.ErrorCode, started)
	case ClassRefund:
		details, err := handler.ProcessRefundWebhook(req, secrets, auth)
		if err != nil {
			return nil, fmt.Errorf("processing refund webhook: %w", err)
		}
		result.Refund = details
		s.publishAudit(merchantID, connectorName, "RefundWebhook", string(details.Status), "", started)
	case ClassDispute:
		details, err := handler.ProcessDisputeWebhook(req, secrets, auth)
		if err != nil {
			return nil, fmt.Errorf("processing dispute webhook: %w", err)
		}
		result.Dispute = details
		s.publishAudit(merchantID, connectorName, "DisputeWebhook", string(details.Status), "", started)
	default:
		return nil, NewError(ErrInvalidDataFormat, connectorName, "webhook event could not be classified")
	}

	return result, nil
}

func paymentResult(connectorName string, status AttemptStatus, resp *PaymentsResponseData, errResp *ErrorResponse) *PaymentResult {
	result := &PaymentResult{Connector: connectorName, Status: status, Error: errResp}
	if errResp != nil {
		if errResp.AttemptStatus != "" {
			result.Status = errResp.AttemptStatus
		} else if status == "" || status == StatusStarted || status == StatusPending {
			result.Status = StatusFailure
		}
		if errResp.ConnectorTransactionID != "" {
			result.ResourceID = errResp.ConnectorTransactionID
		}
		return result
	}
	if resp != nil {
		result.ResourceID = resp.ResourceID
		result.Redirect = resp.Redirect
		result.NetworkTransactionID = resp.NetworkTransactionID
	}
	return result
}

func refundResult(connectorName string, status RefundStatus, resp *RefundsResponseData, errResp *ErrorResponse) *RefundResult {
	result := &RefundResult{Connector: connectorName, Status: status, Error: errResp}
	if errResp != nil {
		result.Status = RefundFailure
		return result
	}
	if resp != nil {
		result.ConnectorRefundID = resp.ConnectorRefundID
		if resp.RefundStatus != "" {
			result.Status = resp.RefundStatus
		}
	}
	return result
}

func disputeResult(connectorName string, resp *DisputeResponseData, errResp *ErrorResponse) *DisputeResult {
	// A rejected dispute call leaves the dispute state unknown; only the
	// provider error is reported.
	result := &DisputeResult{Connector: connectorName, Error: errResp}
	if errResp != nil {
		return result
	}
	if resp != nil {
		result.ConnectorDisputeID = resp.ConnectorDisputeID
		result.Stage = resp.Stage
		result.Status = resp.Status
		result.ConnectorStatus = resp.ConnectorStatus
	}
	return result
}

func errorCode(errResp *ErrorResponse) string {
	if errResp == nil {
		return ""
	}
	return errResp.Code
}

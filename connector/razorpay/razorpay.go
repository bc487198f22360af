package razorpay

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/paybridge/paybridge/connector"
)

const (
	connectorName = "razorpay"

	apiURL = "https://api.razorpay.com"

	// Razorpay payment entity statuses.
	paymentCreated    = "created"
	paymentAuthorized = "authorized"
	paymentCaptured   = "captured"
	paymentRefunded   = "refunded"
	paymentFailed     = "failed"

	// Refund entity statuses.
	refundPending   = "pending"
	refundProcessed = "processed"
	refundFailed    = "failed"
)

// Razorpay amounts are integer paise.
var amountConvertor = connector.MinorUnitConvertor{}

// Razorpay implements the connector contract for the Razorpay API. Payments
// are order-first: CreateOrder runs before Authorize and the order id ties
// the two provider objects together.
type Razorpay struct {
	connector.BaseConnector
	endpoints     connector.Endpoints
	orderBridge   connector.Bridge[orderResponse]
	paymentBridge connector.Bridge[paymentEntity]
	createBridge  connector.Bridge[createPaymentResponse]
	refundBridge  connector.Bridge[refundEntity]
	errorBridge   connector.Bridge[apiErrorEnvelope]
}

// New creates a Razorpay connector instance.
func New(endpoints connector.Endpoints) connector.Connector {
	if endpoints.BaseURL == "" {
		endpoints.BaseURL = apiURL
	}
	return &Razorpay{
		endpoints:     endpoints,
		orderBridge:   connector.NewJSONBridge[orderResponse](connectorName),
		paymentBridge: connector.NewJSONBridge[paymentEntity](connectorName),
		createBridge:  connector.NewJSONBridge[createPaymentResponse](connectorName),
		refundBridge:  connector.NewJSONBridge[refundEntity](connectorName),
		errorBridge:   connector.NewJSONBridge[apiErrorEnvelope](connectorName),
	}
}

func (r *Razorpay) Name() string { return connectorName }

func (r *Razorpay) RequiredCredentials() []connector.ConfigField {
	return []connector.ConfigField{
		{Key: "keyId", Required: true, Description: "Razorpay key id", Pattern: `^rzp_`},
		{Key: "keySecret", Required: true, Secret: true, Description: "Razorpay key secret"},
	}
}

func (r *Razorpay) CreateOrder() connector.CreateOrderOperation { return createOrderOp{r} }
func (r *Razorpay) Authorize() connector.AuthorizeOperation     { return authorizeOp{r} }
func (r *Razorpay) PSync() connector.PSyncOperation             { return psyncOp{r} }
func (r *Razorpay) Capture() connector.CaptureOperation         { return captureOp{r} }
func (r *Razorpay) Refund() connector.RefundOperation           { return refundOp{r} }
func (r *Razorpay) RSync() connector.RSyncOperation             { return rsyncOp{r} }
func (r *Razorpay) Webhooks() connector.WebhookHandler          { return &webhookHandler{} }

func (r *Razorpay) authHeaders(auth connector.AuthType) ([]connector.Header, error) {
	keyID, keySecret, err := auth.BodyKey(connectorName)
	if err != nil {
		return nil, err
	}
	token := base64.StdEncoding.EncodeToString([]byte(keyID.Expose() + ":" + keySecret.Expose()))
	return []connector.Header{
		{Name: "Authorization", Value: "Basic " + token},
		{Name: "Accept", Value: "application/json"},
	}, nil
}

// Wire types.

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type cardPayload struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Name        string `json:"name,omitempty"`
}

type createPaymentRequest struct {
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	OrderID  string      `json:"order_id"`
	Email    string      `json:"email,omitempty"`
	Contact  string      `json:"contact,omitempty"`
	Method   string      `json:"method"`
	Card     cardPayload `json:"card"`
}

type nextAction struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

type createPaymentResponse struct {
	RazorpayPaymentID string       `json:"razorpay_payment_id"`
	Next              []nextAction `json:"next,omitempty"`
}

type acquirerData struct {
	RRN                  string `json:"rrn,omitempty"`
	AuthCode             string `json:"auth_code,omitempty"`
	NetworkTransactionID string `json:"network_transaction_id,omitempty"`
}

type paymentEntity struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"order_id"`
	Status           string        `json:"status"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	ErrorCode        string        `json:"error_code"`
	ErrorDescription string        `json:"error_description"`
	ErrorReason      string        `json:"error_reason"`
	AcquirerData     *acquirerData `json:"acquirer_data,omitempty"`
}

type captureRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type refundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
}

type apiErrorEnvelope struct {
	Error apiError `json:"error"`
}

func mapPaymentStatus(status string) connector.AttemptStatus {
	switch status {
	case paymentCreated:
		return connector.StatusPending
	case paymentAuthorized:
		return connector.StatusAuthorized
	case paymentCaptured:
		return connector.StatusCharged
	case paymentRefunded:
		return connector.StatusAutoRefunded
	case paymentFailed:
		return connector.StatusFailure
	default:
		return connector.StatusUnresolved
	}
}

func mapRefundStatus(status string) connector.RefundStatus {
	switch status {
	case refundProcessed:
		return connector.RefundSuccess
	case refundFailed:
		return connector.RefundFailure
	default:
		return connector.RefundPending
	}
}

func (r *Razorpay) parseError(statusCode int, body []byte) connector.ErrorResponse {
	decoded, err := r.errorBridge.Decode(body)
	if err != nil || decoded.Error.Code == "" {
		return connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        "no_error_code",
			Message:     "failed to parse razorpay error response",
			RawResponse: string(body),
		}
	}
	return connector.ErrorResponse{
		StatusCode:  statusCode,
		Code:        decoded.Error.Code,
		Message:     decoded.Error.Description,
		Reason:      decoded.Error.Reason,
		RawResponse: string(body),
	}
}

func mergePaymentEntity[F connector.Flow, Req any](
	rd *connector.RouterData[F, connector.PaymentFlowData, Req, connector.PaymentsResponseData],
	entity paymentEntity,
	statusCode int,
	raw []byte,
) {
	status := mapPaymentStatus(entity.Status)
	rd.Resource.Status = status
	rd.Resource.RawConnectorResponse = string(raw)

	if status == connector.StatusFailure {
		rd.Error = &connector.ErrorResponse{
			StatusCode:             statusCode,
			Code:                   entity.ErrorCode,
			Message:                entity.ErrorDescription,
			Reason:                 entity.ErrorReason,
			AttemptStatus:          connector.StatusFailure,
			ConnectorTransactionID: entity.ID,
			RawResponse:            string(raw),
		}
		return
	}

	rd.Response.ResourceID = entity.ID
	rd.Response.ConnectorResponseReferenceID = entity.OrderID
	if entity.AcquirerData != nil {
		rd.Response.NetworkTransactionID = entity.AcquirerData.NetworkTransactionID
	}
}

// CreateOrder.

type createOrderOp struct{ *Razorpay }

func (createOrderOp) Method() string { return http.MethodPost }

func (op createOrderOp) URL(_ *connector.RouterData[connector.CreateOrder, connector.PaymentFlowData, connector.CreateOrderData, connector.CreateOrderResponseData]) (string, error) {
	return op.endpoints.BaseURL + "/v1/orders", nil
}

func (op createOrderOp) Headers(rd *connector.RouterData[connector.CreateOrder, connector.PaymentFlowData, connector.CreateOrderData, connector.CreateOrderResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op createOrderOp) Content(rd *connector.RouterData[connector.CreateOrder, connector.PaymentFlowData, connector.CreateOrderData, connector.CreateOrderResponseData]) (*connector.Content, error) {
	paise, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, orderRequest{
		Amount:   int64(paise),
		Currency: string(rd.Request.Currency),
		Receipt:  rd.Request.Reference,
		Notes:    rd.Request.Notes,
	})
}

func (op createOrderOp) HandleResponse(rd *connector.RouterData[connector.CreateOrder, connector.PaymentFlowData, connector.CreateOrderData, connector.CreateOrderResponseData], statusCode int, body []byte) error {
	resp, err := op.orderBridge.Decode(body)
	if err != nil {
		return err
	}
	if resp.ID == "" {
		return connector.NewError(connector.ErrResponseHandlingFailed, connectorName, "order response is missing an id")
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.OrderID = resp.ID
	return nil
}

func (op createOrderOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Authorize. The order id from CreateOrder is mandatory; Razorpay rejects
// orderless card payments on this endpoint.

type authorizeOp struct{ *Razorpay }

func (authorizeOp) Method() string { return http.MethodPost }

func (op authorizeOp) URL(_ *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + "/v1/payments/create/json", nil
}

func (op authorizeOp) Headers(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op authorizeOp) Content(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.OrderID == "" {
		return nil, connector.MissingField(connectorName, "order_id")
	}
	if rd.Request.Card.Number.IsEmpty() {
		return nil, connector.MissingField(connectorName, "payment_method.card.number")
	}
	paise, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, createPaymentRequest{
		Amount:   int64(paise),
		Currency: string(rd.Request.Currency),
		OrderID:  rd.Request.OrderID,
		Email:    rd.Request.Email,
		Contact:  rd.Request.PhoneNumber,
		Method:   "card",
		Card: cardPayload{
			Number:      rd.Request.Card.Number.Expose(),
			ExpiryMonth: rd.Request.Card.ExpiryMonth.Expose(),
			ExpiryYear:  rd.Request.Card.ExpiryYear.Expose(),
			CVV:         rd.Request.Card.CVC.Expose(),
			Name:        rd.Request.Card.HolderName,
		},
	})
}

func (op authorizeOp) HandleResponse(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.createBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ResourceID = resp.RazorpayPaymentID
	rd.Response.ConnectorResponseReferenceID = rd.Request.OrderID

	for _, next := range resp.Next {
		if next.Action == "redirect" && next.URL != "" {
			rd.Resource.Status = connector.StatusAuthenticationPending
			rd.Response.Redirect = &connector.RedirectForm{URL: next.URL, Method: http.MethodGet}
			return nil
		}
	}
	// No challenge step: the payment moves to authorized asynchronously and
	// PSync resolves it.
	rd.Resource.Status = connector.StatusPending
	return nil
}

func (op authorizeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// PSync.

type psyncOp struct{ *Razorpay }

func (psyncOp) Method() string { return http.MethodGet }

func (op psyncOp) URL(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op psyncOp) Headers(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (psyncOp) Content(_ *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (*connector.Content, error) {
	return nil, nil
}

func (op psyncOp) HandleResponse(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	entity, err := op.paymentBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentEntity(rd, entity, statusCode, body)
	return nil
}

func (op psyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Capture.

type captureOp struct{ *Razorpay }

func (captureOp) Method() string { return http.MethodPost }

func (op captureOp) URL(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s/capture", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op captureOp) Headers(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op captureOp) Content(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (*connector.Content, error) {
	paise, err := amountConvertor.Convert(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, captureRequest{
		Amount:   int64(paise),
		Currency: string(rd.Request.Currency),
	})
}

func (op captureOp) HandleResponse(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	entity, err := op.paymentBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentEntity(rd, entity, statusCode, body)
	return nil
}

func (op captureOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Refund.

type refundOp struct{ *Razorpay }

func (refundOp) Method() string { return http.MethodPost }

func (op refundOp) URL(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s/refund", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op refundOp) Headers(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op refundOp) Content(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	paise, err := amountConvertor.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, refundRequest{Amount: int64(paise)})
}

func (op refundOp) HandleResponse(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	entity, err := op.refundBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = entity.ID
	rd.Response.RefundStatus = mapRefundStatus(entity.Status)
	rd.Resource.Status = rd.Response.RefundStatus
	return nil
}

func (op refundOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// RSync.

type rsyncOp struct{ *Razorpay }

func (rsyncOp) Method() string { return http.MethodGet }

func (op rsyncOp) URL(rd *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	if rd.Request.ConnectorRefundID == "" {
		return "", connector.MissingField(connectorName, "connector_refund_id")
	}
	return fmt.Sprintf("%s/v1/refunds/%s", op.endpoints.BaseURL, rd.Request.ConnectorRefundID), nil
}

func (op rsyncOp) Headers(rd *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (rsyncOp) Content(_ *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	return nil, nil
}

func (op rsyncOp) HandleResponse(rd *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	entity, err := op.refundBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = entity.ID
	rd.Response.RefundStatus = mapRefundStatus(entity.Status)
	rd.Resource.Status = rd.Response.RefundStatus
	return nil
}

func (op rsyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

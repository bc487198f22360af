package fiserv

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paybridge/paybridge/connector"
)

const (
	connectorName = "fiserv"

	apiTestURL = "https://cert.api.fiservapps.com"

	chargesPath = "/ch/payments/v1/charges"
	cancelsPath = "/ch/payments/v1/cancels"
	refundsPath = "/ch/payments/v1/refunds"
	inquiryPath = "/ch/payments/v1/transaction-inquiry"

	defaultTerminalID = "10000001"

	// Fiserv transaction states.
	stateAuthorized = "AUTHORIZED"
	stateCaptured   = "CAPTURED"
	stateCompleted  = "COMPLETED"
	stateDeclined   = "DECLINED"
	stateVoided     = "VOIDED"
	stateChecked    = "CHECKED"
)

// Fiserv sends decimal amounts as JSON numbers; the string-major convertor
// keeps them exact and json.Number carries them onto the wire unquoted.
var amountConvertor = connector.StringMajorUnitConvertor{}

// Fiserv implements the connector contract for Fiserv's Commerce Hub API.
// Every request carries an HMAC-SHA256 signature over api-key, a fresh client
// request id, a millisecond timestamp and the exact body bytes.
type Fiserv struct {
	connector.BaseConnector
	endpoints     currentEndpoints
	chargesBridge connector.Bridge[chargesResponse]
	syncBridge    connector.Bridge[[]chargesResponse]
	errorBridge   connector.Bridge[errorResponse]
}

type currentEndpoints struct {
	baseURL string
}

// New creates a Fiserv connector instance.
func New(endpoints connector.Endpoints) connector.Connector {
	base := endpoints.BaseURL
	if base == "" {
		base = apiTestURL
	}
	return &Fiserv{
		endpoints:     currentEndpoints{baseURL: base},
		chargesBridge: connector.NewJSONBridge[chargesResponse](connectorName),
		syncBridge:    connector.NewJSONBridge[[]chargesResponse](connectorName),
		errorBridge:   connector.NewJSONBridge[errorResponse](connectorName),
	}
}

func (f *Fiserv) Name() string { return connectorName }

func (f *Fiserv) RequiredCredentials() []connector.ConfigField {
	return []connector.ConfigField{
		{Key: "apiKey", Required: true, Secret: true, Description: "Commerce Hub API key"},
		{Key: "merchantId", Required: true, Description: "Fiserv merchant identifier"},
		{Key: "apiSecret", Required: true, Secret: true, Description: "Commerce Hub signing secret"},
	}
}

func (f *Fiserv) Authorize() connector.AuthorizeOperation { return authorizeOp{f} }
func (f *Fiserv) PSync() connector.PSyncOperation         { return psyncOp{f} }
func (f *Fiserv) Capture() connector.CaptureOperation     { return captureOp{f} }
func (f *Fiserv) Void() connector.VoidOperation           { return voidOp{f} }
func (f *Fiserv) Refund() connector.RefundOperation       { return refundOp{f} }

// signedHeaders computes the Commerce Hub auth headers over the exact body
// bytes that will be sent. Operations build the body deterministically so the
// signature and the transmitted payload always agree.
func signedHeaders(auth connector.AuthType, body []byte) ([]connector.Header, error) {
	apiKey, _, apiSecret, err := auth.SignatureKey(connectorName)
	if err != nil {
		return nil, err
	}

	clientRequestID := uuid.NewString()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(apiSecret.Expose()))
	mac.Write([]byte(apiKey.Expose() + clientRequestID + timestamp + string(body)))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return []connector.Header{
		{Name: "Api-Key", Value: apiKey.Expose()},
		{Name: "Client-Request-Id", Value: clientRequestID},
		{Name: "Timestamp", Value: timestamp},
		{Name: "Auth-Token-Type", Value: "HMAC"},
		{Name: "Authorization", Value: signature},
		{Name: "Accept", Value: "application/json"},
	}, nil
}

func merchantID(auth connector.AuthType) (string, error) {
	_, key1, _, err := auth.SignatureKey(connectorName)
	if err != nil {
		return "", err
	}
	return key1.Expose(), nil
}

// Wire types.

type amountPayload struct {
	Total    json.Number `json:"total"`
	Currency string      `json:"currency"`
}

type cardPayload struct {
	CardData        string `json:"cardData"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode,omitempty"`
}

type sourcePayload struct {
	SourceType string      `json:"sourceType"`
	Card       cardPayload `json:"card"`
}

type transactionDetails struct {
	CaptureFlag           *bool  `json:"captureFlag,omitempty"`
	ReversalReasonCode    string `json:"reversalReasonCode,omitempty"`
	MerchantTransactionID string `json:"merchantTransactionId,omitempty"`
}

type merchantDetails struct {
	MerchantID string `json:"merchantId"`
	TerminalID string `json:"terminalId"`
}

type referenceTransactionDetails struct {
	ReferenceTransactionID string `json:"referenceTransactionId"`
}

type chargesRequest struct {
	Amount                      amountPayload                `json:"amount"`
	Source                      *sourcePayload               `json:"source,omitempty"`
	TransactionDetails          transactionDetails           `json:"transactionDetails"`
	MerchantDetails             merchantDetails              `json:"merchantDetails"`
	ReferenceTransactionDetails *referenceTransactionDetails `json:"referenceTransactionDetails,omitempty"`
}

type cancelRequest struct {
	Amount                      amountPayload               `json:"amount"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
}

type refundRequest struct {
	Amount                      amountPayload               `json:"amount"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type inquiryRequest struct {
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type processingDetails struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

type gatewayResponse struct {
	TransactionState             string            `json:"transactionState"`
	TransactionProcessingDetails processingDetails `json:"transactionProcessingDetails"`
}

type processorResponse struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

type chargesResponse struct {
	GatewayResponse          gatewayResponse    `json:"gatewayResponse"`
	PaymentReceipt           json.RawMessage    `json:"paymentReceipt,omitempty"`
	ProcessorResponseDetails *processorResponse `json:"processorResponseDetails,omitempty"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Details []errorDetail `json:"error"`
}

func mapTransactionState(state string) connector.AttemptStatus {
	switch state {
	case stateAuthorized:
		return connector.StatusAuthorized
	case stateCaptured, stateCompleted:
		return connector.StatusCharged
	case stateDeclined:
		return connector.StatusFailure
	case stateVoided:
		return connector.StatusVoided
	case stateChecked:
		return connector.StatusPending
	default:
		return connector.StatusUnresolved
	}
}

// mergeChargesResponse normalizes one charges response. A DECLINED state
// arrives with HTTP 200, so the logical failure is raised here rather than in
// the error-response path.
func mergeChargesResponse[F connector.Flow, Req any](
	rd *connector.RouterData[F, connector.PaymentFlowData, Req, connector.PaymentsResponseData],
	resp chargesResponse,
	statusCode int,
	raw []byte,
) {
	status := mapTransactionState(resp.GatewayResponse.TransactionState)
	rd.Resource.Status = status
	rd.Resource.RawConnectorResponse = string(raw)

	if status == connector.StatusFailure {
		errResp := &connector.ErrorResponse{
			StatusCode:             statusCode,
			Code:                   "declined",
			Message:                "transaction declined",
			AttemptStatus:          connector.StatusFailure,
			ConnectorTransactionID: resp.GatewayResponse.TransactionProcessingDetails.TransactionID,
			RawResponse:            string(raw),
		}
		if resp.ProcessorResponseDetails != nil {
			errResp.Code = resp.ProcessorResponseDetails.ResponseCode
			errResp.Message = resp.ProcessorResponseDetails.ResponseMessage
		}
		rd.Error = errResp
		return
	}

	rd.Response.ResourceID = resp.GatewayResponse.TransactionProcessingDetails.TransactionID
	rd.Response.ConnectorResponseReferenceID = resp.GatewayResponse.TransactionProcessingDetails.OrderID
}

func (f *Fiserv) parseError(statusCode int, body []byte) connector.ErrorResponse {
	decoded, err := f.errorBridge.Decode(body)
	if err != nil || len(decoded.Details) == 0 {
		return connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        "no_error_code",
			Message:     "failed to parse fiserv error response",
			RawResponse: string(body),
		}
	}
	first := decoded.Details[0]
	return connector.ErrorResponse{
		StatusCode:  statusCode,
		Code:        first.Code,
		Message:     first.Message,
		Reason:      first.Field,
		RawResponse: string(body),
	}
}

func terminalID(metadata map[string]string) string {
	if id, ok := metadata["terminal_id"]; ok && id != "" {
		return id
	}
	return defaultTerminalID
}

// Authorize.

type authorizeOp struct{ *Fiserv }

func (authorizeOp) Method() string { return http.MethodPost }

func (op authorizeOp) URL(_ *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.baseURL + chargesPath, nil
}

func (op authorizeOp) body(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.Card.Number.IsEmpty() {
		return nil, connector.MissingField(connectorName, "payment_method.card.number")
	}
	account, err := merchantID(rd.Auth)
	if err != nil {
		return nil, err
	}
	total, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	capture := rd.Request.CaptureMethod.IsAutomatic()
	return connector.JSONContent(connectorName, chargesRequest{
		Amount: amountPayload{Total: json.Number(total), Currency: string(rd.Request.Currency)},
		Source: &sourcePayload{
			SourceType: "PaymentCard",
			Card: cardPayload{
				CardData:        rd.Request.Card.Number.Expose(),
				ExpirationMonth: rd.Request.Card.ExpiryMonth.Expose(),
				ExpirationYear:  rd.Request.Card.ExpiryYear.Expose(),
				SecurityCode:    rd.Request.Card.CVC.Expose(),
			},
		},
		TransactionDetails: transactionDetails{
			CaptureFlag:           &capture,
			MerchantTransactionID: rd.Resource.ConnectorRequestReferenceID,
		},
		MerchantDetails: merchantDetails{
			MerchantID: account,
			TerminalID: terminalID(rd.Resource.ConnectorMetadata),
		},
	})
}

func (op authorizeOp) Headers(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	content, err := op.body(rd)
	if err != nil {
		return nil, err
	}
	return signedHeaders(rd.Auth, content.Body)
}

func (op authorizeOp) Content(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	return op.body(rd)
}

func (op authorizeOp) HandleResponse(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.chargesBridge.Decode(body)
	if err != nil {
		return err
	}
	mergeChargesResponse(rd, resp, statusCode, body)
	return nil
}

func (op authorizeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// PSync via transaction inquiry. The inquiry answers with a history array;
// the most recent entry carries the current state.

type psyncOp struct{ *Fiserv }

func (psyncOp) Method() string { return http.MethodPost }

func (op psyncOp) URL(_ *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.baseURL + inquiryPath, nil
}

func (op psyncOp) body(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}
	account, err := merchantID(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, inquiryRequest{
		MerchantDetails: merchantDetails{
			MerchantID: account,
			TerminalID: terminalID(rd.Resource.ConnectorMetadata),
		},
		ReferenceTransactionDetails: referenceTransactionDetails{
			ReferenceTransactionID: rd.Request.ConnectorTransactionID,
		},
	})
}

func (op psyncOp) Headers(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	content, err := op.body(rd)
	if err != nil {
		return nil, err
	}
	return signedHeaders(rd.Auth, content.Body)
}

func (op psyncOp) Content(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (*connector.Content, error) {
	return op.body(rd)
}

func (op psyncOp) HandleResponse(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	history, err := op.syncBridge.Decode(body)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return connector.NewError(connector.ErrResponseHandlingFailed, connectorName, "transaction inquiry returned no entries")
	}
	mergeChargesResponse(rd, history[len(history)-1], statusCode, body)
	return nil
}

func (op psyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Capture: a second charges call referencing the authorized transaction.

type captureOp struct{ *Fiserv }

func (captureOp) Method() string { return http.MethodPost }

func (op captureOp) URL(_ *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.baseURL + chargesPath, nil
}

func (op captureOp) body(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}
	account, err := merchantID(rd.Auth)
	if err != nil {
		return nil, err
	}
	total, err := amountConvertor.Convert(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	capture := true
	return connector.JSONContent(connectorName, chargesRequest{
		Amount:             amountPayload{Total: json.Number(total), Currency: string(rd.Request.Currency)},
		TransactionDetails: transactionDetails{CaptureFlag: &capture},
		MerchantDetails: merchantDetails{
			MerchantID: account,
			TerminalID: terminalID(rd.Resource.ConnectorMetadata),
		},
		ReferenceTransactionDetails: &referenceTransactionDetails{
			ReferenceTransactionID: rd.Request.ConnectorTransactionID,
		},
	})
}

func (op captureOp) Headers(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	content, err := op.body(rd)
	if err != nil {
		return nil, err
	}
	return signedHeaders(rd.Auth, content.Body)
}

func (op captureOp) Content(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (*connector.Content, error) {
	return op.body(rd)
}

func (op captureOp) HandleResponse(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.chargesBridge.Decode(body)
	if err != nil {
		return err
	}
	mergeChargesResponse(rd, resp, statusCode, body)
	return nil
}

func (op captureOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Void.

type voidOp struct{ *Fiserv }

func (voidOp) Method() string { return http.MethodPost }

func (op voidOp) URL(_ *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.baseURL + cancelsPath, nil
}

func (op voidOp) body(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}
	account, err := merchantID(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, cancelRequest{
		MerchantDetails: merchantDetails{
			MerchantID: account,
			TerminalID: terminalID(rd.Resource.ConnectorMetadata),
		},
		ReferenceTransactionDetails: referenceTransactionDetails{
			ReferenceTransactionID: rd.Request.ConnectorTransactionID,
		},
		TransactionDetails: transactionDetails{ReversalReasonCode: "TIMEOUT"},
	})
}

func (op voidOp) Headers(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	content, err := op.body(rd)
	if err != nil {
		return nil, err
	}
	return signedHeaders(rd.Auth, content.Body)
}

func (op voidOp) Content(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) (*connector.Content, error) {
	return op.body(rd)
}

func (op voidOp) HandleResponse(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.chargesBridge.Decode(body)
	if err != nil {
		return err
	}
	mergeChargesResponse(rd, resp, statusCode, body)
	return nil
}

func (op voidOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Refund.

type refundOp struct{ *Fiserv }

func (refundOp) Method() string { return http.MethodPost }

func (op refundOp) URL(_ *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	return op.endpoints.baseURL + refundsPath, nil
}

func (op refundOp) body(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}
	account, err := merchantID(rd.Auth)
	if err != nil {
		return nil, err
	}
	total, err := amountConvertor.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, refundRequest{
		Amount: amountPayload{Total: json.Number(total), Currency: string(rd.Request.Currency)},
		MerchantDetails: merchantDetails{
			MerchantID: account,
			TerminalID: defaultTerminalID,
		},
		ReferenceTransactionDetails: referenceTransactionDetails{
			ReferenceTransactionID: rd.Request.ConnectorTransactionID,
		},
	})
}

func (op refundOp) Headers(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	content, err := op.body(rd)
	if err != nil {
		return nil, err
	}
	return signedHeaders(rd.Auth, content.Body)
}

func (op refundOp) Content(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	return op.body(rd)
}

func (op refundOp) HandleResponse(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	resp, err := op.chargesBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = resp.GatewayResponse.TransactionProcessingDetails.TransactionID

	switch resp.GatewayResponse.TransactionState {
	case stateDeclined:
		rd.Response.RefundStatus = connector.RefundFailure
		rd.Error = &connector.ErrorResponse{
			StatusCode:             statusCode,
			Code:                   "declined",
			Message:                "refund declined",
			ConnectorTransactionID: resp.GatewayResponse.TransactionProcessingDetails.TransactionID,
			RawResponse:            string(body),
		}
		if resp.ProcessorResponseDetails != nil {
			rd.Error.Code = resp.ProcessorResponseDetails.ResponseCode
			rd.Error.Message = resp.ProcessorResponseDetails.ResponseMessage
		}
	case stateCaptured, stateCompleted:
		rd.Response.RefundStatus = connector.RefundSuccess
	default:
		rd.Response.RefundStatus = connector.RefundPending
	}
	rd.Resource.Status = rd.Response.RefundStatus
	return nil
}

func (op refundOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

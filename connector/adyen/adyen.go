package adyen

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/paybridge/paybridge/connector"
)

const (
	connectorName = "adyen"

	apiTestURL = "https://checkout-test.adyen.com/v68"
	apiLiveURL = "https://checkout-live.adyen.com/v68"

	disputeTestURL = "https://ca-test.adyen.com"

	// Adyen result codes.
	resultAuthorised       = "Authorised"
	resultRefused          = "Refused"
	resultError            = "Error"
	resultCancelled        = "Cancelled"
	resultPending          = "Pending"
	resultReceived         = "Received"
	resultRedirectShopper  = "RedirectShopper"
	resultIdentifyShopper  = "IdentifyShopper"
	resultChallengeShopper = "ChallengeShopper"
	resultPresentToShopper = "PresentToShopper"
)

// Adyen amounts are integer minor units.
var amountConvertor = connector.MinorUnitConvertor{}

// Adyen implements the connector contract for Adyen's Checkout API. It holds
// only static configuration and decode bridges; all per-call state lives on
// the RouterData envelope.
type Adyen struct {
	connector.BaseConnector
	endpoints      connector.Endpoints
	paymentsBridge connector.Bridge[paymentsResponse]
	modifyBridge   connector.Bridge[modificationResponse]
	disputeBridge  connector.Bridge[disputeServiceResponse]
	errorBridge    connector.Bridge[apiError]
}

// New creates an Adyen connector instance.
func New(endpoints connector.Endpoints) connector.Connector {
	if endpoints.BaseURL == "" {
		endpoints.BaseURL = apiTestURL
	}
	if endpoints.DisputeBaseURL == "" {
		endpoints.DisputeBaseURL = disputeTestURL
	}
	return &Adyen{
		endpoints:      endpoints,
		paymentsBridge: connector.NewJSONBridge[paymentsResponse](connectorName),
		modifyBridge:   connector.NewJSONBridge[modificationResponse](connectorName),
		disputeBridge:  connector.NewJSONBridge[disputeServiceResponse](connectorName),
		errorBridge:    connector.NewJSONBridge[apiError](connectorName),
	}
}

func (a *Adyen) Name() string { return connectorName }

func (a *Adyen) RequiredCredentials() []connector.ConfigField {
	return []connector.ConfigField{
		{Key: "apiKey", Required: true, Secret: true, Description: "Adyen Checkout API key", MinLength: 20},
		{Key: "merchantAccount", Required: true, Description: "Adyen merchant account code"},
	}
}

func (a *Adyen) Authorize() connector.AuthorizeOperation       { return authorizeOp{a} }
func (a *Adyen) PSync() connector.PSyncOperation               { return psyncOp{a} }
func (a *Adyen) Capture() connector.CaptureOperation           { return captureOp{a} }
func (a *Adyen) Void() connector.VoidOperation                 { return voidOp{a} }
func (a *Adyen) SetupMandate() connector.SetupMandateOperation { return setupMandateOp{a} }
func (a *Adyen) Refund() connector.RefundOperation             { return refundOp{a} }
func (a *Adyen) AcceptDispute() connector.AcceptDisputeOperation {
	return acceptDisputeOp{a}
}
func (a *Adyen) DefendDispute() connector.DefendDisputeOperation {
	return defendDisputeOp{a}
}
func (a *Adyen) SubmitEvidence() connector.SubmitEvidenceOperation {
	return submitEvidenceOp{a}
}
func (a *Adyen) Webhooks() connector.WebhookHandler { return &webhookHandler{} }

// authHeaders resolves the X-API-Key header; the merchant account travels in
// the body and comes from the same credential pair.
func (a *Adyen) authHeaders(auth connector.AuthType) ([]connector.Header, error) {
	apiKey, _, err := auth.BodyKey(connectorName)
	if err != nil {
		return nil, err
	}
	return []connector.Header{
		{Name: "X-API-Key", Value: apiKey.Expose()},
		{Name: "Accept", Value: "application/json"},
	}, nil
}

func merchantAccount(auth connector.AuthType) (string, error) {
	_, key1, err := auth.BodyKey(connectorName)
	if err != nil {
		return "", err
	}
	return key1.Expose(), nil
}

// Wire types.

type amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

type cardDetails struct {
	Type        string `json:"type"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVC         string `json:"cvc,omitempty"`
	HolderName  string `json:"holderName,omitempty"`
}

type paymentsRequest struct {
	Amount                   amount            `json:"amount"`
	MerchantAccount          string            `json:"merchantAccount"`
	Reference                string            `json:"reference"`
	PaymentMethod            cardDetails       `json:"paymentMethod"`
	ReturnURL                string            `json:"returnUrl,omitempty"`
	ShopperEmail             string            `json:"shopperEmail,omitempty"`
	ShopperInteraction       string            `json:"shopperInteraction,omitempty"`
	RecurringProcessingModel string            `json:"recurringProcessingModel,omitempty"`
	StorePaymentMethod       bool              `json:"storePaymentMethod,omitempty"`
	AdditionalData           map[string]string `json:"additionalData,omitempty"`
}

type checkoutAction struct {
	Type   string            `json:"type"`
	URL    string            `json:"url,omitempty"`
	Method string            `json:"method,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

type paymentsResponse struct {
	ResultCode        string            `json:"resultCode"`
	PSPReference      string            `json:"pspReference"`
	MerchantReference string            `json:"merchantReference,omitempty"`
	RefusalReason     string            `json:"refusalReason,omitempty"`
	RefusalReasonCode string            `json:"refusalReasonCode,omitempty"`
	Action            *checkoutAction   `json:"action,omitempty"`
	AdditionalData    map[string]string `json:"additionalData,omitempty"`
}

type detailsRequest struct {
	PaymentData string            `json:"paymentData,omitempty"`
	Details     map[string]string `json:"details"`
}

type modificationRequest struct {
	MerchantAccount string  `json:"merchantAccount"`
	Amount          *amount `json:"amount,omitempty"`
	Reference       string  `json:"reference,omitempty"`
}

type modificationResponse struct {
	PSPReference     string `json:"pspReference"`
	PaymentReference string `json:"paymentPspReference,omitempty"`
	Status           string `json:"status"`
	Reference        string `json:"reference,omitempty"`
}

type apiError struct {
	Status       int    `json:"status"`
	ErrorCode    string `json:"errorCode"`
	Message      string `json:"message"`
	ErrorType    string `json:"errorType"`
	PSPReference string `json:"pspReference,omitempty"`
}

// mapResultCode normalizes an Adyen result code. "Authorised" is terminal
// success under automatic capture because authorization IS the capture there;
// under manual capture the attempt waits for an explicit Capture call.
func mapResultCode(resultCode string, captureMethod connector.CaptureMethod) connector.AttemptStatus {
	switch resultCode {
	case resultAuthorised:
		if captureMethod.IsAutomatic() {
			return connector.StatusCharged
		}
		return connector.StatusAuthorized
	case resultRedirectShopper, resultIdentifyShopper, resultChallengeShopper, resultPresentToShopper:
		return connector.StatusAuthenticationPending
	case resultRefused, resultError:
		return connector.StatusFailure
	case resultCancelled:
		return connector.StatusVoided
	case resultPending, resultReceived:
		return connector.StatusPending
	default:
		return connector.StatusUnresolved
	}
}

func (a *Adyen) parseError(statusCode int, body []byte) connector.ErrorResponse {
	decoded, err := a.errorBridge.Decode(body)
	if err != nil {
		return connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        "no_error_code",
			Message:     "failed to parse adyen error response",
			RawResponse: string(body),
		}
	}
	return connector.ErrorResponse{
		StatusCode:             statusCode,
		Code:                   decoded.ErrorCode,
		Message:                decoded.Message,
		Reason:                 decoded.ErrorType,
		ConnectorTransactionID: decoded.PSPReference,
		RawResponse:            string(body),
	}
}

// mergePaymentsResponse applies a payments response to the envelope; a
// refused or errored result populates rd.Error even on HTTP 200.
func mergePaymentsResponse[F connector.Flow, Req any](
	rd *connector.RouterData[F, connector.PaymentFlowData, Req, connector.PaymentsResponseData],
	resp paymentsResponse,
	statusCode int,
	captureMethod connector.CaptureMethod,
	raw []byte,
) {
	status := mapResultCode(resp.ResultCode, captureMethod)
	rd.Resource.Status = status
	rd.Resource.RawConnectorResponse = string(raw)

	if status == connector.StatusFailure {
		rd.Error = &connector.ErrorResponse{
			StatusCode:             statusCode,
			Code:                   resp.RefusalReasonCode,
			Message:                resp.RefusalReason,
			AttemptStatus:          connector.StatusFailure,
			ConnectorTransactionID: resp.PSPReference,
			RawResponse:            string(raw),
		}
		return
	}

	rd.Response.ResourceID = resp.PSPReference
	rd.Response.ConnectorResponseReferenceID = resp.MerchantReference
	if resp.Action != nil && resp.Action.URL != "" {
		method := resp.Action.Method
		if method == "" {
			method = http.MethodGet
		}
		rd.Response.Redirect = &connector.RedirectForm{
			URL:    resp.Action.URL,
			Method: method,
			Fields: resp.Action.Data,
		}
	}
	if ntid, ok := resp.AdditionalData["networkTxReference"]; ok {
		rd.Response.NetworkTransactionID = ntid
	}
	if mandate, ok := resp.AdditionalData["recurring.recurringDetailReference"]; ok {
		rd.Response.MandateReference = mandate
	}
}

// Authorize.

type authorizeOp struct{ *Adyen }

func (authorizeOp) Method() string { return http.MethodPost }

func (op authorizeOp) URL(_ *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + "/payments", nil
}

func (op authorizeOp) Headers(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op authorizeOp) Content(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Resource.ConnectorRequestReferenceID == "" {
		return nil, connector.MissingField(connectorName, "reference")
	}
	if rd.Request.Card.Number.IsEmpty() {
		return nil, connector.MissingField(connectorName, "payment_method.card.number")
	}
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}

	value, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}

	req := paymentsRequest{
		Amount:          amount{Currency: string(rd.Request.Currency), Value: int64(value)},
		MerchantAccount: account,
		Reference:       rd.Resource.ConnectorRequestReferenceID,
		PaymentMethod: cardDetails{
			Type:        "scheme",
			Number:      rd.Request.Card.Number.Expose(),
			ExpiryMonth: rd.Request.Card.ExpiryMonth.Expose(),
			ExpiryYear:  rd.Request.Card.ExpiryYear.Expose(),
			CVC:         rd.Request.Card.CVC.Expose(),
			HolderName:  rd.Request.Card.HolderName,
		},
		ReturnURL:    rd.Request.ReturnURL,
		ShopperEmail: rd.Request.Email,
	}
	// Manual capture is an account-level setting on Adyen; the request carries
	// no capture flag. captureDelayHours=0 would mean capture immediately.
	if rd.Request.SetupFutureUsage {
		req.ShopperInteraction = "Ecommerce"
		req.RecurringProcessingModel = "CardOnFile"
		req.StorePaymentMethod = true
	}

	return connector.JSONContent(connectorName, req)
}

func (op authorizeOp) HandleResponse(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.paymentsBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentsResponse(rd, resp, statusCode, rd.Request.CaptureMethod, body)
	return nil
}

func (op authorizeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// PSync. Adyen resolves redirect outcomes through /payments/details; the
// encoded redirect result arrives on the sync request.

type psyncOp struct{ *Adyen }

func (psyncOp) Method() string { return http.MethodPost }

func (op psyncOp) URL(_ *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + "/payments/details", nil
}

func (op psyncOp) Headers(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op psyncOp) Content(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Request.EncodedData == "" {
		return nil, connector.MissingField(connectorName, "encoded_data")
	}
	return connector.JSONContent(connectorName, detailsRequest{
		Details: map[string]string{"redirectResult": rd.Request.EncodedData},
	})
}

func (op psyncOp) HandleResponse(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.paymentsBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentsResponse(rd, resp, statusCode, rd.Request.CaptureMethod, body)
	return nil
}

func (op psyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Adyen syncs partial captures one by one.
func (psyncOp) MultipleCaptureSyncMethod() connector.CaptureSyncMethod {
	return connector.CaptureSyncIndividual
}

// Capture.

type captureOp struct{ *Adyen }

func (captureOp) Method() string { return http.MethodPost }

func (op captureOp) URL(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/payments/%s/captures", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op captureOp) Headers(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op captureOp) Content(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData]) (*connector.Content, error) {
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	value, err := amountConvertor.Convert(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, modificationRequest{
		MerchantAccount: account,
		Amount:          &amount{Currency: string(rd.Request.Currency), Value: int64(value)},
		Reference:       rd.Resource.ConnectorRequestReferenceID,
	})
}

func (op captureOp) HandleResponse(rd *connector.RouterData[connector.Capture, connector.PaymentFlowData, connector.PaymentsCaptureData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.modifyBridge.Decode(body)
	if err != nil {
		return err
	}
	// Adyen acknowledges modifications with "received"; the terminal capture
	// outcome arrives through a CAPTURE webhook or a later sync.
	rd.Resource.Status = connector.StatusCaptureInitiated
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ResourceID = resp.PSPReference
	rd.Response.ConnectorResponseReferenceID = resp.Reference
	return nil
}

func (op captureOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Void.

type voidOp struct{ *Adyen }

func (voidOp) Method() string { return http.MethodPost }

func (op voidOp) URL(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/payments/%s/cancels", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op voidOp) Headers(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op voidOp) Content(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData]) (*connector.Content, error) {
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, modificationRequest{
		MerchantAccount: account,
		Reference:       rd.Resource.ConnectorRequestReferenceID,
	})
}

func (op voidOp) HandleResponse(rd *connector.RouterData[connector.Void, connector.PaymentFlowData, connector.PaymentsCancelData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.modifyBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.Status = connector.StatusVoidInitiated
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ResourceID = resp.PSPReference
	return nil
}

func (op voidOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// SetupMandate: a zero-value authorization that stores the payment method.

type setupMandateOp struct{ *Adyen }

func (setupMandateOp) Method() string { return http.MethodPost }

func (op setupMandateOp) URL(_ *connector.RouterData[connector.SetupMandate, connector.PaymentFlowData, connector.SetupMandateData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + "/payments", nil
}

func (op setupMandateOp) Headers(rd *connector.RouterData[connector.SetupMandate, connector.PaymentFlowData, connector.SetupMandateData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op setupMandateOp) Content(rd *connector.RouterData[connector.SetupMandate, connector.PaymentFlowData, connector.SetupMandateData, connector.PaymentsResponseData]) (*connector.Content, error) {
	if rd.Resource.ConnectorRequestReferenceID == "" {
		return nil, connector.MissingField(connectorName, "reference")
	}
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, paymentsRequest{
		Amount:          amount{Currency: string(rd.Request.Currency), Value: 0},
		MerchantAccount: account,
		Reference:       rd.Resource.ConnectorRequestReferenceID,
		PaymentMethod: cardDetails{
			Type:        "scheme",
			Number:      rd.Request.Card.Number.Expose(),
			ExpiryMonth: rd.Request.Card.ExpiryMonth.Expose(),
			ExpiryYear:  rd.Request.Card.ExpiryYear.Expose(),
			CVC:         rd.Request.Card.CVC.Expose(),
			HolderName:  rd.Request.Card.HolderName,
		},
		ReturnURL:                rd.Request.ReturnURL,
		ShopperEmail:             rd.Request.Email,
		ShopperInteraction:       "Ecommerce",
		RecurringProcessingModel: "UnscheduledCardOnFile",
		StorePaymentMethod:       true,
	})
}

func (op setupMandateOp) HandleResponse(rd *connector.RouterData[connector.SetupMandate, connector.PaymentFlowData, connector.SetupMandateData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.paymentsBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentsResponse(rd, resp, statusCode, connector.CaptureManual, body)
	return nil
}

func (op setupMandateOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Refund. Adyen acknowledges refunds with "received"; the terminal refund
// state arrives through REFUND webhooks, so RSync stays unimplemented here.

type refundOp struct{ *Adyen }

func (refundOp) Method() string { return http.MethodPost }

func (op refundOp) URL(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.MissingField(connectorName, "connector_transaction_id")
	}
	return fmt.Sprintf("%s/payments/%s/refunds", op.endpoints.BaseURL, rd.Request.ConnectorTransactionID), nil
}

func (op refundOp) Headers(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op refundOp) Content(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	value, err := amountConvertor.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, modificationRequest{
		MerchantAccount: account,
		Amount:          &amount{Currency: string(rd.Request.Currency), Value: int64(value)},
		Reference:       rd.Resource.ConnectorRequestReferenceID,
	})
}

func (op refundOp) HandleResponse(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	resp, err := op.modifyBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.Status = connector.RefundPending
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = resp.PSPReference
	rd.Response.RefundStatus = connector.RefundPending
	return nil
}

func (op refundOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

// Dispute flows against the Dispute Service API.

type acceptDisputeRequest struct {
	DisputePSPReference string `json:"disputePspReference"`
	MerchantAccountCode string `json:"merchantAccountCode"`
}

type defendDisputeRequest struct {
	DisputePSPReference string `json:"disputePspReference"`
	MerchantAccountCode string `json:"merchantAccountCode"`
	DefenseReasonCode   string `json:"defenseReasonCode"`
}

type supplyDefenseDocumentRequest struct {
	DisputePSPReference string            `json:"disputePspReference"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	DefenseDocuments    []defenseDocument `json:"defenseDocuments"`
}

type defenseDocument struct {
	DefenseDocumentTypeCode string `json:"defenseDocumentTypeCode"`
	Content                 string `json:"content"`
	ContentType             string `json:"contentType"`
}

type disputeServiceResponse struct {
	DisputeServiceResult struct {
		Success      bool   `json:"success"`
		ErrorMessage string `json:"errorMessage,omitempty"`
	} `json:"disputeServiceResult"`
}

func (a *Adyen) handleDisputeResponse(body []byte, statusCode int, success connector.DisputeStatus) (connector.DisputeStatus, *connector.ErrorResponse, error) {
	resp, err := a.disputeBridge.Decode(body)
	if err != nil {
		return "", nil, err
	}
	if !resp.DisputeServiceResult.Success {
		return "", &connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        "dispute_service_error",
			Message:     resp.DisputeServiceResult.ErrorMessage,
			RawResponse: string(body),
		}, nil
	}
	return success, nil, nil
}

type acceptDisputeOp struct{ *Adyen }

func (acceptDisputeOp) Method() string { return http.MethodPost }

func (op acceptDisputeOp) URL(_ *connector.RouterData[connector.Accept, connector.DisputeFlowData, connector.AcceptDisputeData, connector.DisputeResponseData]) (string, error) {
	return op.endpoints.DisputeBaseURL + "/ca/services/DisputeService/v30/acceptDispute", nil
}

func (op acceptDisputeOp) Headers(rd *connector.RouterData[connector.Accept, connector.DisputeFlowData, connector.AcceptDisputeData, connector.DisputeResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op acceptDisputeOp) Content(rd *connector.RouterData[connector.Accept, connector.DisputeFlowData, connector.AcceptDisputeData, connector.DisputeResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorDisputeID == "" {
		return nil, connector.MissingField(connectorName, "connector_dispute_id")
	}
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, acceptDisputeRequest{
		DisputePSPReference: rd.Request.ConnectorDisputeID,
		MerchantAccountCode: account,
	})
}

func (op acceptDisputeOp) HandleResponse(rd *connector.RouterData[connector.Accept, connector.DisputeFlowData, connector.AcceptDisputeData, connector.DisputeResponseData], statusCode int, body []byte) error {
	status, errResp, err := op.handleDisputeResponse(body, statusCode, connector.DisputeAccepted)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	if errResp != nil {
		rd.Error = errResp
		return nil
	}
	rd.Resource.Status = status
	rd.Response.ConnectorDisputeID = rd.Request.ConnectorDisputeID
	rd.Response.Status = status
	return nil
}

func (op acceptDisputeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

type defendDisputeOp struct{ *Adyen }

func (defendDisputeOp) Method() string { return http.MethodPost }

func (op defendDisputeOp) URL(_ *connector.RouterData[connector.DefendDispute, connector.DisputeFlowData, connector.DefendDisputeData, connector.DisputeResponseData]) (string, error) {
	return op.endpoints.DisputeBaseURL + "/ca/services/DisputeService/v30/defendDispute", nil
}

func (op defendDisputeOp) Headers(rd *connector.RouterData[connector.DefendDispute, connector.DisputeFlowData, connector.DefendDisputeData, connector.DisputeResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op defendDisputeOp) Content(rd *connector.RouterData[connector.DefendDispute, connector.DisputeFlowData, connector.DefendDisputeData, connector.DisputeResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorDisputeID == "" {
		return nil, connector.MissingField(connectorName, "connector_dispute_id")
	}
	if rd.Request.DefenseReasonCode == "" {
		return nil, connector.MissingField(connectorName, "defense_reason_code")
	}
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, defendDisputeRequest{
		DisputePSPReference: rd.Request.ConnectorDisputeID,
		MerchantAccountCode: account,
		DefenseReasonCode:   rd.Request.DefenseReasonCode,
	})
}

func (op defendDisputeOp) HandleResponse(rd *connector.RouterData[connector.DefendDispute, connector.DisputeFlowData, connector.DefendDisputeData, connector.DisputeResponseData], statusCode int, body []byte) error {
	status, errResp, err := op.handleDisputeResponse(body, statusCode, connector.DisputeChallenged)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	if errResp != nil {
		rd.Error = errResp
		return nil
	}
	rd.Resource.Status = status
	rd.Response.ConnectorDisputeID = rd.Request.ConnectorDisputeID
	rd.Response.Status = status
	return nil
}

func (op defendDisputeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

type submitEvidenceOp struct{ *Adyen }

func (submitEvidenceOp) Method() string { return http.MethodPost }

func (op submitEvidenceOp) URL(_ *connector.RouterData[connector.SubmitEvidence, connector.DisputeFlowData, connector.SubmitEvidenceData, connector.DisputeResponseData]) (string, error) {
	return op.endpoints.DisputeBaseURL + "/ca/services/DisputeService/v30/supplyDefenseDocument", nil
}

func (op submitEvidenceOp) Headers(rd *connector.RouterData[connector.SubmitEvidence, connector.DisputeFlowData, connector.SubmitEvidenceData, connector.DisputeResponseData]) ([]connector.Header, error) {
	return op.authHeaders(rd.Auth)
}

func (op submitEvidenceOp) Content(rd *connector.RouterData[connector.SubmitEvidence, connector.DisputeFlowData, connector.SubmitEvidenceData, connector.DisputeResponseData]) (*connector.Content, error) {
	if rd.Request.ConnectorDisputeID == "" {
		return nil, connector.MissingField(connectorName, "connector_dispute_id")
	}
	if len(rd.Request.EvidenceDocument) == 0 {
		return nil, connector.MissingField(connectorName, "evidence_document")
	}
	account, err := merchantAccount(rd.Auth)
	if err != nil {
		return nil, err
	}
	docType := rd.Request.EvidenceType
	if docType == "" {
		docType = "DefenseMaterial"
	}
	return connector.JSONContent(connectorName, supplyDefenseDocumentRequest{
		DisputePSPReference: rd.Request.ConnectorDisputeID,
		MerchantAccountCode: account,
		DefenseDocuments: []defenseDocument{{
			DefenseDocumentTypeCode: docType,
			// supplyDefenseDocument takes the document bytes base64-encoded.
			Content:     base64.StdEncoding.EncodeToString(rd.Request.EvidenceDocument),
			ContentType: "application/pdf",
		}},
	})
}

func (op submitEvidenceOp) HandleResponse(rd *connector.RouterData[connector.SubmitEvidence, connector.DisputeFlowData, connector.SubmitEvidenceData, connector.DisputeResponseData], statusCode int, body []byte) error {
	status, errResp, err := op.handleDisputeResponse(body, statusCode, connector.DisputeChallenged)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	if errResp != nil {
		rd.Error = errResp
		return nil
	}
	rd.Resource.Status = status
	rd.Response.ConnectorDisputeID = rd.Request.ConnectorDisputeID
	rd.Response.Status = status
	return nil
}

func (op submitEvidenceOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return op.parseError(statusCode, body)
}

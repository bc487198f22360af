package fiuu

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"

	"github.com/paybridge/paybridge/connector"
)

const (
	connectorName = "fiuu"

	apiTestURL = "https://sandbox.merchant.razer.com"

	directPath     = "/RMS/API/Direct/1.4.0/index.php"
	recurringPath  = "/RMS/API/Recurring/input_v7.php"
	syncPath       = "/RMS/API/gate-way/index.php"
	refundPath     = "/RMS/API/refundAPI/index.php"
	refundSyncPath = "/RMS/API/refundAPI/q_by_refID.php"

	// Fiuu status codes, shared by payments and refunds.
	statSuccess = "00"
	statFailed  = "11"
	statPending = "22"

	txnTypeSale = "SALS"
	txnTypeAuth = "AUTS"
)

// Fiuu wants major-unit decimal strings ("10.50").
var amountConvertor = connector.StringMajorUnitConvertor{}

// Fiuu implements the connector contract for the Fiuu (Razer Merchant
// Services) API. Requests are form-urlencoded and signed with md5 digests;
// the recurring endpoint answers with key=value lines instead of JSON, which
// the preprocessing bridge re-encodes before decoding.
type Fiuu struct {
	connector.BaseConnector
	endpoints       connector.Endpoints
	paymentBridge   connector.Bridge[paymentResponse]
	recurringBridge connector.Bridge[paymentResponse]
	refundBridge    connector.Bridge[refundResponse]
}

// New creates a Fiuu connector instance.
func New(endpoints connector.Endpoints) connector.Connector {
	if endpoints.BaseURL == "" {
		endpoints.BaseURL = apiTestURL
	}
	// The recurring API lives on its own host for some merchant setups.
	if endpoints.SecondaryURL == "" {
		endpoints.SecondaryURL = endpoints.BaseURL
	}
	return &Fiuu{
		endpoints:       endpoints,
		paymentBridge:   connector.NewJSONBridge[paymentResponse](connectorName),
		recurringBridge: connector.NewJSONBridge[paymentResponse](connectorName).WithPreprocessor(connector.LineValuesToJSON),
		refundBridge:    connector.NewJSONBridge[refundResponse](connectorName),
	}
}

func (f *Fiuu) Name() string { return connectorName }

func (f *Fiuu) RequiredCredentials() []connector.ConfigField {
	return []connector.ConfigField{
		{Key: "verifyKey", Required: true, Secret: true, Description: "Fiuu verify key"},
		{Key: "merchantId", Required: true, Description: "Fiuu merchant id"},
		{Key: "secretKey", Required: true, Secret: true, Description: "Fiuu secret key"},
	}
}

func (f *Fiuu) Authorize() connector.AuthorizeOperation { return authorizeOp{f} }
func (f *Fiuu) PSync() connector.PSyncOperation         { return psyncOp{f} }
func (f *Fiuu) Refund() connector.RefundOperation       { return refundOp{f} }
func (f *Fiuu) RSync() connector.RSyncOperation         { return rsyncOp{f} }

type credentials struct {
	verifyKey  string
	merchantID string
	secretKey  string
}

func resolveCredentials(auth connector.AuthType) (credentials, error) {
	verifyKey, merchantID, secretKey, err := auth.SignatureKey(connectorName)
	if err != nil {
		return credentials{}, err
	}
	return credentials{
		verifyKey:  verifyKey.Expose(),
		merchantID: merchantID.Expose(),
		secretKey:  secretKey.Expose(),
	}, nil
}

func md5Hex(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Wire types. The recurring endpoint emits the same fields as key=value
// lines, so every value decodes from a JSON string.

type paymentResponse struct {
	RefNo       string `json:"RefNo"`
	TranID      string `json:"TranID"`
	StatCode    string `json:"StatCode"`
	ErrorCode   string `json:"ErrorCode"`
	ErrorDesc   string `json:"ErrorDesc"`
	RedirectURL string `json:"RedirectURL"`
}

type refundResponse struct {
	RefundID  string `json:"RefundID"`
	TxnID     string `json:"TxnID"`
	Status    string `json:"Status"`
	ErrorCode string `json:"ErrorCode"`
	ErrorDesc string `json:"ErrorDesc"`
}

func mapStatCode(statCode string, captureMethod connector.CaptureMethod) connector.AttemptStatus {
	switch statCode {
	case statSuccess:
		if captureMethod.IsAutomatic() {
			return connector.StatusCharged
		}
		return connector.StatusAuthorized
	case statFailed:
		return connector.StatusFailure
	case statPending:
		return connector.StatusPending
	default:
		return connector.StatusUnresolved
	}
}

func mapRefundStatus(status string) connector.RefundStatus {
	switch status {
	case statSuccess:
		return connector.RefundSuccess
	case statFailed:
		return connector.RefundFailure
	default:
		return connector.RefundPending
	}
}

// rawError is the fallback for bodies that match no expected schema.
func rawError(statusCode int, body []byte) connector.ErrorResponse {
	return connector.ErrorResponse{
		StatusCode:  statusCode,
		Code:        "no_error_code",
		Message:     "failed to parse fiuu error response",
		RawResponse: string(body),
	}
}

func mergePaymentResponse[F connector.Flow, Req any](
	rd *connector.RouterData[F, connector.PaymentFlowData, Req, connector.PaymentsResponseData],
	resp paymentResponse,
	statusCode int,
	captureMethod connector.CaptureMethod,
	raw []byte,
) {
	status := mapStatCode(resp.StatCode, captureMethod)
	rd.Resource.Status = status
	rd.Resource.RawConnectorResponse = string(raw)

	if status == connector.StatusFailure {
		rd.Error = &connector.ErrorResponse{
			StatusCode:             statusCode,
			Code:                   resp.ErrorCode,
			Message:                resp.ErrorDesc,
			AttemptStatus:          connector.StatusFailure,
			ConnectorTransactionID: resp.TranID,
			RawResponse:            string(raw),
		}
		return
	}

	rd.Response.ResourceID = resp.TranID
	rd.Response.ConnectorResponseReferenceID = resp.RefNo
	if resp.RedirectURL != "" {
		rd.Resource.Status = connector.StatusAuthenticationPending
		rd.Response.Redirect = &connector.RedirectForm{URL: resp.RedirectURL, Method: http.MethodGet}
	}
}

// Authorize. A present network transaction id routes the call to the
// recurring endpoint, which replays a prior card-on-file payment and answers
// in line format; first-time payments use the direct JSON endpoint.

type authorizeOp struct{ *Fiuu }

func (authorizeOp) Method() string { return http.MethodPost }

func (op authorizeOp) URL(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (string, error) {
	if rd.Request.NetworkTransactionID != "" {
		return op.endpoints.SecondaryURL + recurringPath, nil
	}
	return op.endpoints.BaseURL + directPath, nil
}

func (authorizeOp) Headers(_ *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return []connector.Header{{Name: "Accept", Value: "application/json"}}, nil
}

func (op authorizeOp) Content(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	creds, err := resolveCredentials(rd.Auth)
	if err != nil {
		return nil, err
	}
	if rd.Resource.ConnectorRequestReferenceID == "" {
		return nil, connector.MissingField(connectorName, "reference_no")
	}
	amount, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("MerchantID", creds.merchantID)
	values.Set("ReferenceNo", rd.Resource.ConnectorRequestReferenceID)
	values.Set("TxnAmount", string(amount))
	values.Set("TxnCurrency", string(rd.Request.Currency))

	if rd.Request.NetworkTransactionID != "" {
		values.Set("Token", rd.Request.NetworkTransactionID)
	} else {
		if rd.Request.Card.Number.IsEmpty() {
			return nil, connector.MissingField(connectorName, "payment_method.card.number")
		}
		txnType := txnTypeAuth
		if rd.Request.CaptureMethod.IsAutomatic() {
			txnType = txnTypeSale
		}
		values.Set("TxnType", txnType)
		values.Set("CC_PAN", rd.Request.Card.Number.Expose())
		values.Set("CC_CVV2", rd.Request.Card.CVC.Expose())
		values.Set("CC_MONTH", rd.Request.Card.ExpiryMonth.Expose())
		values.Set("CC_YEAR", rd.Request.Card.ExpiryYear.Expose())
		if rd.Request.ReturnURL != "" {
			values.Set("ReturnURL", rd.Request.ReturnURL)
		}
	}

	// vcode binds amount, merchant, reference and the verify key.
	values.Set("vcode", md5Hex(string(amount), creds.merchantID, rd.Resource.ConnectorRequestReferenceID, creds.verifyKey))

	return connector.FormContent(values), nil
}

func (op authorizeOp) HandleResponse(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	bridge := op.paymentBridge
	if rd.Request.NetworkTransactionID != "" {
		bridge = op.recurringBridge
	}
	resp, err := bridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentResponse(rd, resp, statusCode, rd.Request.CaptureMethod, body)
	return nil
}

func (op authorizeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	resp, err := op.paymentBridge.Decode(body)
	if err != nil || resp.ErrorCode == "" {
		return rawError(statusCode, body)
	}
	return connector.ErrorResponse{
		StatusCode:  statusCode,
		Code:        resp.ErrorCode,
		Message:     resp.ErrorDesc,
		RawResponse: string(body),
	}
}

// PSync.

type psyncOp struct{ *Fiuu }

func (psyncOp) Method() string { return http.MethodPost }

func (op psyncOp) URL(_ *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + syncPath, nil
}

func (psyncOp) Headers(_ *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	return []connector.Header{{Name: "Accept", Value: "application/json"}}, nil
}

func (op psyncOp) Content(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData]) (*connector.Content, error) {
	creds, err := resolveCredentials(rd.Auth)
	if err != nil {
		return nil, err
	}
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}

	values := url.Values{}
	values.Set("txID", rd.Request.ConnectorTransactionID)
	values.Set("domain", creds.merchantID)
	values.Set("type", "json")
	values.Set("skey", md5Hex(rd.Request.ConnectorTransactionID, creds.merchantID, creds.verifyKey))
	return connector.FormContent(values), nil
}

func (op psyncOp) HandleResponse(rd *connector.RouterData[connector.PSync, connector.PaymentFlowData, connector.PaymentsSyncData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	resp, err := op.paymentBridge.Decode(body)
	if err != nil {
		return err
	}
	mergePaymentResponse(rd, resp, statusCode, rd.Request.CaptureMethod, body)
	return nil
}

func (op psyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return rawError(statusCode, body)
}

// Refund.

type refundOp struct{ *Fiuu }

func (refundOp) Method() string { return http.MethodPost }

func (op refundOp) URL(_ *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	return op.endpoints.BaseURL + refundPath, nil
}

func (refundOp) Headers(_ *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	return []connector.Header{{Name: "Accept", Value: "application/json"}}, nil
}

func (op refundOp) Content(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	creds, err := resolveCredentials(rd.Auth)
	if err != nil {
		return nil, err
	}
	if rd.Request.ConnectorTransactionID == "" {
		return nil, connector.MissingField(connectorName, "connector_transaction_id")
	}
	amount, err := amountConvertor.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("RefundType", "P")
	values.Set("MerchantID", creds.merchantID)
	values.Set("RefID", rd.Resource.ConnectorRequestReferenceID)
	values.Set("TxnID", rd.Request.ConnectorTransactionID)
	values.Set("Amount", string(amount))
	values.Set("Signature", md5Hex(creds.merchantID, rd.Request.ConnectorTransactionID, string(amount), creds.secretKey))
	return connector.FormContent(values), nil
}

func (op refundOp) HandleResponse(rd *connector.RouterData[connector.Refund, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	resp, err := op.refundBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = resp.RefundID
	rd.Response.RefundStatus = mapRefundStatus(resp.Status)
	rd.Resource.Status = rd.Response.RefundStatus

	if rd.Response.RefundStatus == connector.RefundFailure {
		rd.Error = &connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        resp.ErrorCode,
			Message:     resp.ErrorDesc,
			RawResponse: string(body),
		}
	}
	return nil
}

func (op refundOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return rawError(statusCode, body)
}

// RSync.

type rsyncOp struct{ *Fiuu }

func (rsyncOp) Method() string { return http.MethodPost }

func (op rsyncOp) URL(_ *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (string, error) {
	return op.endpoints.BaseURL + refundSyncPath, nil
}

func (rsyncOp) Headers(_ *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) ([]connector.Header, error) {
	return []connector.Header{{Name: "Accept", Value: "application/json"}}, nil
}

func (op rsyncOp) Content(rd *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData]) (*connector.Content, error) {
	creds, err := resolveCredentials(rd.Auth)
	if err != nil {
		return nil, err
	}
	if rd.Request.ConnectorRefundID == "" {
		return nil, connector.MissingField(connectorName, "connector_refund_id")
	}

	values := url.Values{}
	values.Set("RefundID", rd.Request.ConnectorRefundID)
	values.Set("MerchantID", creds.merchantID)
	values.Set("Signature", md5Hex(creds.merchantID, rd.Request.ConnectorRefundID, creds.secretKey))
	return connector.FormContent(values), nil
}

func (op rsyncOp) HandleResponse(rd *connector.RouterData[connector.RSync, connector.RefundFlowData, connector.RefundsData, connector.RefundsResponseData], statusCode int, body []byte) error {
	resp, err := op.refundBridge.Decode(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)
	rd.Response.ConnectorRefundID = resp.RefundID
	rd.Response.RefundStatus = mapRefundStatus(resp.Status)
	rd.Resource.Status = rd.Response.RefundStatus
	return nil
}

func (op rsyncOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	return rawError(statusCode, body)
}

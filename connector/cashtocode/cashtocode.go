package cashtocode

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/paybridge/paybridge/connector"
)

const (
	connectorName = "cashtocode"

	apiTestURL = "https://cluster05.api-test.cashtocode.com"

	payURL = "/merchant/paytokens"

	// Supported payment method types; each selects its own credential set
	// inside the per-currency auth blob.
	methodClassic  = "classic_reward"
	methodEvoucher = "evoucher"
)

// Amounts go out as decimal major units.
var amountConvertor = connector.FloatMajorUnitConvertor{}

// CashToCode implements the connector contract for the CashtoCode voucher
// API. Only Authorize is a real call; the terminal outcome always arrives
// through the confirmation webhook.
type CashToCode struct {
	connector.BaseConnector
	endpoints connector.Endpoints
}

// New creates a CashtoCode connector instance.
func New(endpoints connector.Endpoints) connector.Connector {
	if endpoints.BaseURL == "" {
		endpoints.BaseURL = apiTestURL
	}
	return &CashToCode{endpoints: endpoints}
}

func (c *CashToCode) Name() string { return connectorName }

func (c *CashToCode) RequiredCredentials() []connector.ConfigField {
	return []connector.ConfigField{
		{Key: "username_classic", Required: false, Description: "classic reward API username"},
		{Key: "password_classic", Required: false, Secret: true, Description: "classic reward API password"},
		{Key: "merchant_id_classic", Required: false, Description: "classic reward merchant id"},
		{Key: "username_evoucher", Required: false, Description: "evoucher API username"},
		{Key: "password_evoucher", Required: false, Secret: true, Description: "evoucher API password"},
		{Key: "merchant_id_evoucher", Required: false, Description: "evoucher merchant id"},
	}
}

func (c *CashToCode) Authorize() connector.AuthorizeOperation { return authorizeOp{c} }
func (c *CashToCode) Webhooks() connector.WebhookHandler      { return &webhookHandler{} }

// methodCredentials picks the credential triple for the requested payment
// method type out of the currency-keyed blob. The method type is mandatory
// because the username, password and merchant id all differ per method.
func methodCredentials(auth connector.AuthType, currency connector.Currency, paymentMethodType string) (username, password, merchantID connector.Secret, err error) {
	creds, err := auth.CurrencyKey(connectorName, currency)
	if err != nil {
		return "", "", "", err
	}

	var suffix string
	switch paymentMethodType {
	case methodClassic:
		suffix = "_classic"
	case methodEvoucher:
		suffix = "_evoucher"
	case "":
		return "", "", "", connector.NewError(connector.ErrMissingPaymentMethodType, connectorName, "payment method type is required to select credentials")
	default:
		return "", "", "", connector.NewError(connector.ErrMissingPaymentMethodType, connectorName, fmt.Sprintf("unsupported payment method type %q", paymentMethodType))
	}

	username = creds["username"+suffix]
	password = creds["password"+suffix]
	merchantID = creds["merchant_id"+suffix]
	if username.IsEmpty() || password.IsEmpty() || merchantID.IsEmpty() {
		return "", "", "", connector.NewError(connector.ErrInvalidConfiguration, connectorName, fmt.Sprintf("incomplete %s credentials for currency %s", paymentMethodType, currency))
	}
	return username, password, merchantID, nil
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Wire types.

type payTokenRequest struct {
	Amount        connector.FloatMajorUnit `json:"amount"`
	TransactionID string                   `json:"transactionId"`
	UserID        string                   `json:"userId"`
	Currency      string                   `json:"currency"`
	Email         string                   `json:"email,omitempty"`
	MID           string                   `json:"mid"`
	ReturnURL     string                   `json:"returnUrl,omitempty"`
}

type payTokenSuccess struct {
	PayURL string `json:"pay_url"`
}

type payTokenError struct {
	Error            json.Number `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

// decodePayTokenResponse resolves the provider's untagged response union:
// first the success schema (its discriminant field must be present), then the
// error schema. Only if both fail is the body malformed.
func decodePayTokenResponse(raw []byte) (*payTokenSuccess, *payTokenError, error) {
	var success payTokenSuccess
	if err := json.Unmarshal(raw, &success); err == nil && success.PayURL != "" {
		return &success, nil, nil
	}
	var apiErr payTokenError
	if err := json.Unmarshal(raw, &apiErr); err == nil && (apiErr.Error != "" || apiErr.ErrorDescription != "") {
		return nil, &apiErr, nil
	}
	return nil, nil, connector.DeserializationError(connectorName, raw, fmt.Errorf("body matches neither success nor error schema"))
}

// Authorize.

type authorizeOp struct{ *CashToCode }

func (authorizeOp) Method() string { return http.MethodPost }

func (op authorizeOp) URL(_ *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (string, error) {
	return op.endpoints.BaseURL + payURL, nil
}

func (op authorizeOp) Headers(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) ([]connector.Header, error) {
	username, password, _, err := methodCredentials(rd.Auth, rd.Request.Currency, rd.Request.PaymentMethodType)
	if err != nil {
		return nil, err
	}
	return []connector.Header{
		{Name: "Authorization", Value: basicAuth(username.Expose(), password.Expose())},
		{Name: "Accept", Value: "application/json"},
	}, nil
}

func (op authorizeOp) Content(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData]) (*connector.Content, error) {
	_, _, merchantID, err := methodCredentials(rd.Auth, rd.Request.Currency, rd.Request.PaymentMethodType)
	if err != nil {
		return nil, err
	}
	if rd.Resource.ConnectorRequestReferenceID == "" {
		return nil, connector.MissingField(connectorName, "transaction_id")
	}
	amount, err := amountConvertor.Convert(rd.Request.Amount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(connectorName, payTokenRequest{
		Amount:        amount,
		TransactionID: rd.Resource.ConnectorRequestReferenceID,
		UserID:        rd.Resource.MerchantID,
		Currency:      string(rd.Request.Currency),
		Email:         rd.Request.Email,
		MID:           merchantID.Expose(),
		ReturnURL:     rd.Request.ReturnURL,
	})
}

func (op authorizeOp) HandleResponse(rd *connector.RouterData[connector.Authorize, connector.PaymentFlowData, connector.PaymentsAuthorizeData, connector.PaymentsResponseData], statusCode int, body []byte) error {
	success, apiErr, err := decodePayTokenResponse(body)
	if err != nil {
		return err
	}
	rd.Resource.RawConnectorResponse = string(body)

	if apiErr != nil {
		rd.Resource.Status = connector.StatusFailure
		rd.Error = &connector.ErrorResponse{
			StatusCode:    statusCode,
			Code:          apiErr.Error.String(),
			Message:       apiErr.ErrorDescription,
			AttemptStatus: connector.StatusFailure,
			RawResponse:   string(body),
		}
		return nil
	}

	// The customer now has to redeem the voucher at the pay URL; the
	// confirmation webhook carries the terminal outcome.
	rd.Resource.Status = connector.StatusAuthenticationPending
	rd.Response.ResourceID = rd.Resource.ConnectorRequestReferenceID
	rd.Response.Redirect = &connector.RedirectForm{
		URL:    success.PayURL,
		Method: http.MethodGet,
	}
	return nil
}

func (op authorizeOp) ErrorResponse(statusCode int, body []byte) connector.ErrorResponse {
	_, apiErr, err := decodePayTokenResponse(body)
	if err != nil || apiErr == nil {
		return connector.ErrorResponse{
			StatusCode:  statusCode,
			Code:        "no_error_code",
			Message:     "failed to parse cashtocode error response",
			RawResponse: string(body),
		}
	}
	return connector.ErrorResponse{
		StatusCode:  statusCode,
		Code:        apiErr.Error.String(),
		Message:     apiErr.ErrorDescription,
		RawResponse: string(body),
	}
}

package cashtocode

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/paybridge/paybridge/connector"
)

type webhookPayload struct {
	Amount               json.Number `json:"amount"`
	Currency             string      `json:"currency"`
	ForeignTransactionID string      `json:"foreignTransactionId"`
	TransactionID        string      `json:"transactionId"`
	Type                 string      `json:"type"`
}

// webhookHandler verifies confirmation callbacks with the shared basic-auth
// secret and maps them straight to a charged attempt: CashtoCode only calls
// back once the voucher was redeemed.
type webhookHandler struct{}

func (webhookHandler) EventClass(_ *connector.IncomingWebhook) (connector.EventClass, error) {
	return connector.ClassPayment, nil
}

func (webhookHandler) VerifySource(req *connector.IncomingWebhook, secrets connector.WebhookSecrets, _ connector.AuthType) (bool, error) {
	if secrets.Secret.IsEmpty() {
		return false, connector.NewError(connector.ErrWebhookSourceVerification, connectorName, "webhook auth secret is not configured")
	}
	received := req.Headers.Get("Authorization")
	expected := "Basic " + secrets.Secret.Expose()
	return subtle.ConstantTimeCompare([]byte(received), []byte(expected)) == 1, nil
}

func (webhookHandler) ProcessPaymentWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookPaymentDetails, error) {
	var payload webhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, connector.DeserializationError(connectorName, req.Body, err)
	}
	if payload.ForeignTransactionID == "" {
		return nil, connector.NewError(connector.ErrParsing, connectorName, "webhook is missing foreignTransactionId")
	}

	amount, err := payload.Amount.Float64()
	if err != nil {
		return nil, connector.DeserializationError(connectorName, req.Body, err)
	}
	currency := connector.Currency(payload.Currency)
	minor, err := connector.FloatMajorUnitConvertor{}.ConvertBack(connector.FloatMajorUnit(amount), currency)
	if err != nil {
		return nil, err
	}

	return &connector.WebhookPaymentDetails{
		ConnectorTransactionID: payload.ForeignTransactionID,
		Status:                 connector.StatusCharged,
		Amount:                 minor,
		Currency:               currency,
	}, nil
}

func (webhookHandler) ProcessRefundWebhook(_ *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookRefundDetails, error) {
	return nil, connector.NewError(connector.ErrWebhooksNotImplemented, connectorName, "refund webhooks are not supported")
}

func (webhookHandler) ProcessDisputeWebhook(_ *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookDisputeDetails, error) {
	return nil, connector.NewError(connector.ErrWebhooksNotImplemented, connectorName, "dispute webhooks are not supported")
}

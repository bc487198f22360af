package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paybridge/paybridge/connector"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment,omitempty"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund,omitempty"`
		Dispute *struct {
			Entity disputeEntity `json:"entity"`
		} `json:"dispute,omitempty"`
	} `json:"payload"`
}

type disputeEntity struct {
	ID         string `json:"id"`
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Phase      string `json:"phase"`
	Status     string `json:"status"`
	ReasonCode string `json:"reason_code"`
}

type webhookHandler struct{}

func parseEnvelope(body []byte) (*webhookEnvelope, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, connector.DeserializationError(connectorName, body, err)
	}
	if envelope.Event == "" {
		return nil, connector.NewError(connector.ErrParsing, connectorName, "webhook is missing the event field")
	}
	return &envelope, nil
}

func (webhookHandler) EventClass(req *connector.IncomingWebhook) (connector.EventClass, error) {
	envelope, err := parseEnvelope(req.Body)
	if err != nil {
		return connector.ClassUnknown, err
	}
	switch {
	case strings.HasPrefix(envelope.Event, "payment.dispute."):
		return connector.ClassDispute, nil
	case strings.HasPrefix(envelope.Event, "refund."):
		return connector.ClassRefund, nil
	case strings.HasPrefix(envelope.Event, "payment."):
		return connector.ClassPayment, nil
	default:
		return connector.ClassUnknown, nil
	}
}

// VerifySource checks X-Razorpay-Signature: hex HMAC-SHA256 of the exact body
// with the webhook secret.
func (webhookHandler) VerifySource(req *connector.IncomingWebhook, secrets connector.WebhookSecrets, _ connector.AuthType) (bool, error) {
	if secrets.Secret.IsEmpty() {
		return false, connector.NewError(connector.ErrWebhookSourceVerification, connectorName, "webhook secret is not configured")
	}
	received := req.Headers.Get("X-Razorpay-Signature")
	if received == "" {
		return false, nil
	}
	mac := hmac.New(sha256.New, []byte(secrets.Secret.Expose()))
	mac.Write(req.Body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(received)), nil
}

func (webhookHandler) ProcessPaymentWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookPaymentDetails, error) {
	envelope, err := parseEnvelope(req.Body)
	if err != nil {
		return nil, err
	}
	if envelope.Payload.Payment == nil {
		return nil, connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s carries no payment entity", envelope.Event))
	}
	entity := envelope.Payload.Payment.Entity
	details := &connector.WebhookPaymentDetails{
		ConnectorTransactionID: entity.ID,
		Status:                 mapPaymentStatus(entity.Status),
		Amount:                 connector.MinorUnit(entity.Amount),
		Currency:               connector.Currency(entity.Currency),
	}
	if details.Status == connector.StatusFailure {
		details.ErrorCode = entity.ErrorCode
		details.ErrorMessage = entity.ErrorDescription
	}
	return details, nil
}

func (webhookHandler) ProcessRefundWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookRefundDetails, error) {
	envelope, err := parseEnvelope(req.Body)
	if err != nil {
		return nil, err
	}
	if envelope.Payload.Refund == nil {
		return nil, connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s carries no refund entity", envelope.Event))
	}
	entity := envelope.Payload.Refund.Entity
	return &connector.WebhookRefundDetails{
		ConnectorRefundID:      entity.ID,
		ConnectorTransactionID: entity.PaymentID,
		Status:                 mapRefundStatus(entity.Status),
		Amount:                 connector.MinorUnit(entity.Amount),
		Currency:               connector.Currency(entity.Currency),
	}, nil
}

// mapDisputePhase normalizes Razorpay's (phase, status) pair.
func mapDisputePhase(phase, status string) (connector.DisputeStage, connector.DisputeStatus) {
	var stage connector.DisputeStage
	switch phase {
	case "fraud", "retrieval":
		stage = connector.StagePreDispute
	case "pre_arbitration", "arbitration":
		stage = connector.StagePreArbitration
	default: // chargeback
		stage = connector.StageActiveDispute
	}

	var st connector.DisputeStatus
	switch status {
	case "won":
		st = connector.DisputeWon
	case "lost":
		st = connector.DisputeLost
	case "under_review":
		st = connector.DisputeChallenged
	case "closed":
		st = connector.DisputeAccepted
	default: // open
		st = connector.DisputeOpened
	}
	return stage, st
}

func (webhookHandler) ProcessDisputeWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookDisputeDetails, error) {
	envelope, err := parseEnvelope(req.Body)
	if err != nil {
		return nil, err
	}
	if envelope.Payload.Dispute == nil {
		return nil, connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s carries no dispute entity", envelope.Event))
	}
	entity := envelope.Payload.Dispute.Entity
	stage, status := mapDisputePhase(entity.Phase, entity.Status)
	return &connector.WebhookDisputeDetails{
		ConnectorDisputeID:     entity.ID,
		ConnectorTransactionID: entity.PaymentID,
		Stage:                  stage,
		Status:                 status,
		Amount:                 connector.MinorUnit(entity.Amount),
		Currency:               connector.Currency(entity.Currency),
		Reason:                 entity.ReasonCode,
	}, nil
}

package adyen

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paybridge/paybridge/connector"
)

// Adyen notification event codes.
const (
	eventAuthorisation  = "AUTHORISATION"
	eventCapture        = "CAPTURE"
	eventCaptureFailed  = "CAPTURE_FAILED"
	eventCancellation   = "CANCELLATION"
	eventRefund         = "REFUND"
	eventRefundFailed   = "REFUND_FAILED"
	eventRefundReversed = "REFUNDED_REVERSED"

	eventNotificationOfChargeback = "NOTIFICATION_OF_CHARGEBACK"
	eventChargeback               = "CHARGEBACK"
	eventChargebackReversed       = "CHARGEBACK_REVERSED"
	eventSecondChargeback         = "SECOND_CHARGEBACK"
	eventPrearbitrationWon        = "PREARBITRATION_WON"
	eventPrearbitrationLost       = "PREARBITRATION_LOST"
)

type webhookEnvelope struct {
	Live              string `json:"live"`
	NotificationItems []struct {
		NotificationRequestItem notificationItem `json:"NotificationRequestItem"`
	} `json:"notificationItems"`
}

type notificationItem struct {
	EventCode           string            `json:"eventCode"`
	Success             string            `json:"success"`
	PSPReference        string            `json:"pspReference"`
	OriginalReference   string            `json:"originalReference"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	MerchantReference   string            `json:"merchantReference"`
	Reason              string            `json:"reason"`
	Amount              amount            `json:"amount"`
	AdditionalData      map[string]string `json:"additionalData"`
}

type webhookHandler struct{}

func parseNotification(body []byte) (*notificationItem, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, connector.DeserializationError(connectorName, body, err)
	}
	if len(envelope.NotificationItems) == 0 {
		return nil, connector.NewError(connector.ErrParsing, connectorName, "webhook contains no notification items")
	}
	item := envelope.NotificationItems[0].NotificationRequestItem
	return &item, nil
}

func (webhookHandler) EventClass(req *connector.IncomingWebhook) (connector.EventClass, error) {
	item, err := parseNotification(req.Body)
	if err != nil {
		return connector.ClassUnknown, err
	}
	switch item.EventCode {
	case eventAuthorisation, eventCapture, eventCaptureFailed, eventCancellation:
		return connector.ClassPayment, nil
	case eventRefund, eventRefundFailed, eventRefundReversed:
		return connector.ClassRefund, nil
	case eventNotificationOfChargeback, eventChargeback, eventChargebackReversed,
		eventSecondChargeback, eventPrearbitrationWon, eventPrearbitrationLost:
		return connector.ClassDispute, nil
	default:
		return connector.ClassUnknown, nil
	}
}

// VerifySource recomputes the notification HMAC. The signing string is the
// colon-joined canonical field sequence Adyen documents; the key is the
// hex-encoded HMAC key from the customer area.
func (webhookHandler) VerifySource(req *connector.IncomingWebhook, secrets connector.WebhookSecrets, _ connector.AuthType) (bool, error) {
	if secrets.Secret.IsEmpty() {
		return false, connector.NewError(connector.ErrWebhookSourceVerification, connectorName, "webhook hmac key is not configured")
	}
	item, err := parseNotification(req.Body)
	if err != nil {
		return false, err
	}
	received := item.AdditionalData["hmacSignature"]
	if received == "" {
		return false, nil
	}

	key, err := hex.DecodeString(secrets.Secret.Expose())
	if err != nil {
		return false, connector.WrapError(connector.ErrWebhookSourceVerification, connectorName, "webhook hmac key is not valid hex", err)
	}

	signingString := strings.Join([]string{
		item.PSPReference,
		item.OriginalReference,
		item.MerchantAccountCode,
		item.MerchantReference,
		fmt.Sprintf("%d", item.Amount.Value),
		item.Amount.Currency,
		item.EventCode,
		item.Success,
	}, ":")

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signingString))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(received)), nil
}

func (webhookHandler) ProcessPaymentWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookPaymentDetails, error) {
	item, err := parseNotification(req.Body)
	if err != nil {
		return nil, err
	}
	success := item.Success == "true"

	var status connector.AttemptStatus
	switch item.EventCode {
	case eventAuthorisation:
		if success {
			status = connector.StatusAuthorized
		} else {
			status = connector.StatusFailure
		}
	case eventCapture:
		if success {
			status = connector.StatusCharged
		} else {
			status = connector.StatusCaptureFailed
		}
	case eventCaptureFailed:
		status = connector.StatusCaptureFailed
	case eventCancellation:
		if success {
			status = connector.StatusVoided
		} else {
			status = connector.StatusVoidFailed
		}
	default:
		return nil, connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s is not a payment event", item.EventCode))
	}

	transactionID := item.PSPReference
	if item.OriginalReference != "" {
		transactionID = item.OriginalReference
	}

	details := &connector.WebhookPaymentDetails{
		ConnectorTransactionID: transactionID,
		Status:                 status,
		Amount:                 connector.MinorUnit(item.Amount.Value),
		Currency:               connector.Currency(item.Amount.Currency),
	}
	if !success {
		details.ErrorMessage = item.Reason
	}
	return details, nil
}

func (webhookHandler) ProcessRefundWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookRefundDetails, error) {
	item, err := parseNotification(req.Body)
	if err != nil {
		return nil, err
	}

	var status connector.RefundStatus
	switch item.EventCode {
	case eventRefund:
		if item.Success == "true" {
			status = connector.RefundSuccess
		} else {
			status = connector.RefundFailure
		}
	case eventRefundFailed, eventRefundReversed:
		status = connector.RefundFailure
	default:
		return nil, connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s is not a refund event", item.EventCode))
	}

	return &connector.WebhookRefundDetails{
		ConnectorRefundID:      item.PSPReference,
		ConnectorTransactionID: item.OriginalReference,
		Status:                 status,
		Amount:                 connector.MinorUnit(item.Amount.Value),
		Currency:               connector.Currency(item.Amount.Currency),
	}, nil
}

// mapDisputeEvent normalizes the (eventCode, disputeStatus) pair into a
// lifecycle stage and status. disputeStatus arrives in additionalData and
// refines the active-dispute events.
func mapDisputeEvent(eventCode, disputeStatus string) (connector.DisputeStage, connector.DisputeStatus, error) {
	switch eventCode {
	case eventNotificationOfChargeback:
		return connector.StagePreDispute, connector.DisputeOpened, nil
	case eventChargeback:
		switch disputeStatus {
		case "Lost":
			return connector.StageActiveDispute, connector.DisputeLost, nil
		case "Accepted":
			return connector.StageActiveDispute, connector.DisputeAccepted, nil
		default: // Undefended, Pending
			return connector.StageActiveDispute, connector.DisputeOpened, nil
		}
	case eventChargebackReversed:
		if disputeStatus == "Pending" {
			return connector.StageActiveDispute, connector.DisputeChallenged, nil
		}
		return connector.StageActiveDispute, connector.DisputeWon, nil
	case eventSecondChargeback:
		return connector.StagePreArbitration, connector.DisputeOpened, nil
	case eventPrearbitrationWon:
		if disputeStatus == "Pending" {
			return connector.StagePreArbitration, connector.DisputeOpened, nil
		}
		return connector.StagePreArbitration, connector.DisputeWon, nil
	case eventPrearbitrationLost:
		return connector.StagePreArbitration, connector.DisputeLost, nil
	default:
		return "", "", connector.NewError(connector.ErrParsing, connectorName, fmt.Sprintf("event %s is not a dispute event", eventCode))
	}
}

func (webhookHandler) ProcessDisputeWebhook(req *connector.IncomingWebhook, _ connector.WebhookSecrets, _ connector.AuthType) (*connector.WebhookDisputeDetails, error) {
	item, err := parseNotification(req.Body)
	if err != nil {
		return nil, err
	}
	stage, status, err := mapDisputeEvent(item.EventCode, item.AdditionalData["disputeStatus"])
	if err != nil {
		return nil, err
	}
	return &connector.WebhookDisputeDetails{
		ConnectorDisputeID:     item.PSPReference,
		ConnectorTransactionID: item.OriginalReference,
		Stage:                  stage,
		Status:                 status,
		Amount:                 connector.MinorUnit(item.Amount.Value),
		Currency:               connector.Currency(item.Amount.Currency),
		Reason:                 item.AdditionalData["chargebackReasonCode"],
	}, nil
}

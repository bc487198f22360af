package connector

import (
	"errors"
	"fmt"
)

// ErrorKind classifies framework failures. Configuration and encoding kinds
// are terminal for the call and indicate a setup or input problem; decoding
// kinds are terminal but keep the raw provider bytes for diagnostics; network
// kind is the only potentially transient class and retry scheduling belongs
// to the caller.
type ErrorKind string

const (
	ErrInvalidConfiguration          ErrorKind = "invalid_configuration"
	ErrFailedToObtainAuthType        ErrorKind = "failed_to_obtain_auth_type"
	ErrMissingPaymentMethodType      ErrorKind = "missing_payment_method_type"
	ErrCurrencyNotSupported          ErrorKind = "currency_not_supported"
	ErrRequestEncodingFailed         ErrorKind = "request_encoding_failed"
	ErrMissingRequiredField          ErrorKind = "missing_required_field"
	ErrInvalidDataFormat             ErrorKind = "invalid_data_format"
	ErrResponseDeserializationFailed ErrorKind = "response_deserialization_failed"
	ErrResponseHandlingFailed        ErrorKind = "response_handling_failed"
	ErrParsing                       ErrorKind = "parsing_error"
	ErrNetwork                       ErrorKind = "network_error"
	ErrNotImplemented                ErrorKind = "not_implemented"
	ErrWebhooksNotImplemented        ErrorKind = "webhooks_not_implemented"
	ErrFlowNotSupported              ErrorKind = "flow_not_supported"
	ErrWebhookSourceVerification     ErrorKind = "webhook_source_verification_failed"
)

// Error is the typed error returned by every fallible framework operation.
type Error struct {
	Kind        ErrorKind
	Connector   string
	Message     string
	RawResponse []byte
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Connector != "" {
		msg = e.Connector + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a framework error for the given connector and kind.
func NewError(kind ErrorKind, connectorName, message string) *Error {
	return &Error{Kind: kind, Connector: connectorName, Message: message}
}

// WrapError attaches an underlying cause.
func WrapError(kind ErrorKind, connectorName, message string, err error) *Error {
	return &Error{Kind: kind, Connector: connectorName, Message: message, Err: err}
}

// MissingField reports a required request field that was absent when building
// an outbound request.
func MissingField(connectorName, field string) *Error {
	return &Error{Kind: ErrMissingRequiredField, Connector: connectorName, Message: fmt.Sprintf("missing required field '%s'", field)}
}

// DeserializationError keeps the raw provider bytes so the payload is never
// silently discarded.
func DeserializationError(connectorName string, raw []byte, err error) *Error {
	return &Error{Kind: ErrResponseDeserializationFailed, Connector: connectorName, Message: "failed to deserialize connector response", RawResponse: raw, Err: err}
}

// IsKind reports whether err is a framework error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ErrorResponse is the normalized connector-reported error carried on the
// RouterData envelope. A populated ErrorResponse is not a framework fault:
// it means the provider answered and declined or failed the operation.
type ErrorResponse struct {
	StatusCode             int           `json:"statusCode"`
	Code                   string        `json:"code"`
	Message                string        `json:"message"`
	Reason                 string        `json:"reason,omitempty"`
	AttemptStatus          AttemptStatus `json:"attemptStatus,omitempty"`
	ConnectorTransactionID string        `json:"connectorTransactionId,omitempty"`
	NetworkDeclineCode     string        `json:"networkDeclineCode,omitempty"`
	NetworkAdviceCode      string        `json:"networkAdviceCode,omitempty"`
	NetworkErrorMessage    string        `json:"networkErrorMessage,omitempty"`
	RawResponse            string        `json:"rawResponse,omitempty"`
}

package connector

import "fmt"

// Secret wraps a sensitive string so it redacts when printed, logged or
// serialized. The wire value is only reachable through Expose, which adapters
// call at the point of request encoding.
type Secret string

const redacted = "*** redacted ***"

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return redacted }

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

// Expose returns the underlying secret value.
func (s Secret) Expose() string { return string(s) }

// IsEmpty reports whether no value was supplied.
func (s Secret) IsEmpty() bool { return len(s) == 0 }

// AuthKind discriminates the credential shapes merchants can supply.
type AuthKind string

const (
	AuthHeaderKey    AuthKind = "header_key"
	AuthBodyKey      AuthKind = "body_key"
	AuthSignatureKey AuthKind = "signature_key"
	AuthCurrencyKey  AuthKind = "currency_auth_key"
	AuthNoKey        AuthKind = "no_key"
)

// CredentialMap is the nested credential blob of a currency-keyed auth entry.
// Key names are connector-specific (e.g. cashtocode provisions distinct
// classic-reward and evoucher credentials per currency).
type CredentialMap map[string]Secret

// AuthType is the tagged union of connector credential shapes. It is built
// once per call from externally supplied merchant credentials and never
// persisted by this layer.
type AuthType struct {
	Kind         AuthKind
	APIKey       Secret
	Key1         Secret
	APISecret    Secret
	CurrencyKeys map[Currency]CredentialMap
}

// NewHeaderKeyAuth builds a single-secret header credential.
func NewHeaderKeyAuth(apiKey Secret) AuthType {
	return AuthType{Kind: AuthHeaderKey, APIKey: apiKey}
}

// NewBodyKeyAuth builds an api-key plus key1 credential pair.
func NewBodyKeyAuth(apiKey, key1 Secret) AuthType {
	return AuthType{Kind: AuthBodyKey, APIKey: apiKey, Key1: key1}
}

// NewSignatureKeyAuth builds the three-part credential used by connectors
// that sign requests.
func NewSignatureKeyAuth(apiKey, key1, apiSecret Secret) AuthType {
	return AuthType{Kind: AuthSignatureKey, APIKey: apiKey, Key1: key1, APISecret: apiSecret}
}

// NewCurrencyAuth builds a currency-indexed credential map.
func NewCurrencyAuth(keys map[Currency]CredentialMap) AuthType {
	return AuthType{Kind: AuthCurrencyKey, CurrencyKeys: keys}
}

// NoAuth is the explicit absence of credentials.
func NoAuth() AuthType { return AuthType{Kind: AuthNoKey} }

// HeaderKey resolves the single-secret shape. Any other supplied shape is a
// merchant configuration error, not a transient fault.
func (a AuthType) HeaderKey(connectorName string) (Secret, error) {
	if a.Kind != AuthHeaderKey || a.APIKey.IsEmpty() {
		return "", NewError(ErrFailedToObtainAuthType, connectorName, fmt.Sprintf("expected header-key auth, got %s", a.Kind))
	}
	return a.APIKey, nil
}

// BodyKey resolves the api-key/key1 shape.
func (a AuthType) BodyKey(connectorName string) (apiKey, key1 Secret, err error) {
	if a.Kind != AuthBodyKey || a.APIKey.IsEmpty() || a.Key1.IsEmpty() {
		return "", "", NewError(ErrFailedToObtainAuthType, connectorName, fmt.Sprintf("expected body-key auth, got %s", a.Kind))
	}
	return a.APIKey, a.Key1, nil
}

// SignatureKey resolves the three-part signing shape.
func (a AuthType) SignatureKey(connectorName string) (apiKey, key1, apiSecret Secret, err error) {
	if a.Kind != AuthSignatureKey || a.APIKey.IsEmpty() || a.Key1.IsEmpty() || a.APISecret.IsEmpty() {
		return "", "", "", NewError(ErrFailedToObtainAuthType, connectorName, fmt.Sprintf("expected signature-key auth, got %s", a.Kind))
	}
	return a.APIKey, a.Key1, a.APISecret, nil
}

// CurrencyKey resolves the credential blob for one currency. A missing entry
// means the merchant is not provisioned for that currency on this connector.
func (a AuthType) CurrencyKey(connectorName string, currency Currency) (CredentialMap, error) {
	if a.Kind != AuthCurrencyKey || a.CurrencyKeys == nil {
		return nil, NewError(ErrFailedToObtainAuthType, connectorName, fmt.Sprintf("expected currency-keyed auth, got %s", a.Kind))
	}
	creds, ok := a.CurrencyKeys[currency]
	if !ok {
		return nil, NewError(ErrCurrencyNotSupported, connectorName, fmt.Sprintf("currency %s is not configured for this connector", currency))
	}
	return creds, nil
}

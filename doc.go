// Package paybridge is a payment connector abstraction service. It exposes a
// single HTTP API for card payments, refunds, disputes and provider webhooks,
// and translates each call into the wire protocol of the selected payment
// provider.
//
// # Overview
//
// Every provider integration (a "connector") lives in its own package under
// connector/ and registers itself with the default registry in init. A
// connector implements one operation per payment flow it supports: Authorize,
// PSync, Capture, Void, Refund, RSync, the mandate and order flows, and the
// dispute flows. Flows a provider does not support stay nil and are reported
// as not implemented rather than failing at runtime.
//
// The dispatch engine drives every flow through the same pipeline: build the
// request envelope, encode it with the connector's codec, send it, then hand
// the provider's response back to the connector for normalization. Amounts
// are converted between minor units and each provider's expected
// representation at the boundary; card numbers and API keys are carried in a
// redacting wrapper so they never appear in logs.
//
// # Library Usage
//
//	import (
//	    "context"
//
//	    "github.com/paybridge/paybridge/connector"
//	    _ "github.com/paybridge/paybridge/connector/adyen" // register connector
//	)
//
//	func main() {
//	    service := connector.NewService(connector.ServiceConfig{
//	        Creds: myCredentialStore,
//	    })
//
//	    result, err := service.Authorize(context.Background(), "adyen", connector.AuthorizeParams{
//	        MerchantID: "merchant-1",
//	        Amount:     1000,
//	        Currency:   "USD",
//	        Card: connector.Card{
//	            Number:      "4111111111111111",
//	            ExpiryMonth: "03",
//	            ExpiryYear:  "2030",
//	            CVC:         "737",
//	        },
//	    })
//	    _ = result
//	    _ = err
//	}
//
// # HTTP API
//
// The cmd/ binary serves the same operations over REST. Merchants are
// identified by the X-Merchant-ID header set by the gateway in front of the
// service.
//
//	POST   /v1/payments/{connector}                      authorize a payment
//	GET    /v1/payments/{connector}/{transactionID}      payment status
//	POST   /v1/payments/{connector}/{transactionID}/capture
//	POST   /v1/payments/{connector}/{transactionID}/void
//	POST   /v1/refunds/{connector}                       refund a payment
//	GET    /v1/refunds/{connector}/{refundID}            refund status
//	POST   /v1/disputes/{connector}/{disputeID}/accept   concede a dispute
//	POST   /v1/disputes/{connector}/{disputeID}/defend   challenge a dispute
//	POST   /v1/disputes/{connector}/{disputeID}/evidence attach defense material
//	POST   /v1/webhooks/{connector}                      provider notifications
//	GET    /v1/connectors                                registered connectors
//	PUT    /v1/credentials/{connector}                   store merchant credentials
//	GET    /v1/analytics/events                          audit trail
//	GET    /v1/health                                    health check
//
// # Credentials
//
// Merchant credentials are stored per merchant/connector pair in SQLite,
// encrypted at rest with AES-GCM. Each call resolves the caller's credentials
// into the connector's auth scheme: header key, body key, signature key, or
// currency-scoped key sets for providers with per-currency accounts.
//
// # Audit Trail
//
// Every flow invocation emits an audit event (connector, flow, status,
// latency) to OpenSearch when publishing is enabled. The analytics endpoint
// queries the same index.
//
// # Adding a Connector
//
// To integrate a new provider:
//
//  1. Create a package under connector/{name}/
//  2. Implement the operations for the flows the provider supports
//  3. Register a factory with connector.Register in init
//  4. Declare the credential fields merchants must supply
package paybridge

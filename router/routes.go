package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/handler"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/middle"
	"github.com/paybridge/paybridge/infra/response"
)

// Dependencies holds everything the HTTP surface needs. The audit searcher is
// optional; without it the analytics endpoint reports itself unavailable.
type Dependencies struct {
	Service  handler.DispatchService
	Registry *connector.Registry
	Store    *config.CredentialStore
	Searcher handler.AuditSearcher
	Validate *validator.Validate
}

// New builds the service router with the full middleware stack.
func New(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middle.RequestIDMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware())
	r.Use(middle.RateLimitMiddleware(middle.NewRateLimiter()))
	r.Use(middle.RequestValidationMiddleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With", "X-Merchant-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	payments := handler.NewPaymentHandler(deps.Service, deps.Validate)
	disputes := handler.NewDisputesHandler(deps.Service, deps.Validate)
	webhooks := handler.NewWebhookHandler(deps.Service)
	connectors := handler.NewConnectorsHandler(deps.Registry)
	credentials := handler.NewCredentialsHandler(deps.Store, deps.Registry, deps.Validate)
	analytics := handler.NewAnalyticsHandler(deps.Searcher)
	health := handler.NewHealthHandler(deps.Store, deps.Registry, deps.Service)

	r.Get("/health", health.CheckHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", health.CheckHealth)

		r.Route("/payments/{connector}", func(r chi.Router) {
			r.Post("/", payments.Authorize)
			r.Get("/{transactionID}", payments.SyncPayment)
			r.Post("/{transactionID}/capture", payments.CapturePayment)
			r.Post("/{transactionID}/void", payments.VoidPayment)
		})

		r.Route("/refunds/{connector}", func(r chi.Router) {
			r.Post("/", payments.RefundPayment)
			r.Get("/{refundID}", payments.SyncRefund)
		})

		r.Route("/disputes/{connector}/{disputeID}", func(r chi.Router) {
			r.Post("/accept", disputes.AcceptDispute)
			r.Post("/defend", disputes.DefendDispute)
			r.Post("/evidence", disputes.SubmitEvidence)
		})

		// Provider notifications; source verification happens per connector.
		r.Post("/webhooks/{connector}", webhooks.HandleWebhook)

		r.Get("/connectors", connectors.ListConnectors)
		r.Get("/connectors/{connector}", connectors.GetConnector)

		r.Get("/credentials", credentials.ListMerchantConnectors)
		r.Put("/credentials/{connector}", credentials.SaveCredentials)
		r.Delete("/credentials/{connector}", credentials.DeleteCredentials)

		r.Get("/analytics/events", analytics.ListEvents)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusNotFound, response.Response{
			Code:    http.StatusNotFound,
			Success: false,
			Message: "Not Found",
		})
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the chi router. Every /v1 route passes through request id,
// bearer authentication and per-client throttling, in that order.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.metrics.middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	auth := newAuthenticator(s.cfg.JWTSecret, s.cfg.JWTIssuer)
	limiter := newRateLimiter(s.cfg.RequestsPerMinute, s.cfg.Burst, newProxyTrust(s.cfg.TrustedProxies))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(auth.middleware)
		v1.Use(limiter.middleware)

		if s.cfg.BootstrapAdmin != "" {
			v1.Post("/initialize", s.handleInitialize)
		}
		v1.Get("/fees", s.handleQuote)

		v1.Route("/remittances", func(rr chi.Router) {
			rr.Post("/", s.handleCreate)
			rr.Get("/{id}", s.handleGet)
			rr.Post("/{id}/complete", s.handleComplete)
			rr.Post("/{id}/refund", s.handleRefund)
		})

		v1.Route("/users/{account}", func(ur chi.Router) {
			ur.Get("/history", s.handleHistory)
			ur.Get("/stats", s.handleStats)
		})

		v1.Get("/balances/{account}", s.handleBalance)
		v1.Get("/balances/{account}/transactions", s.handleTransactions)
	})

	return r
}

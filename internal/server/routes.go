package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Invocation
	r.Post("/invoke", s.invoke) // Streaming response
	r.Post("/abort", s.abort)

	// Agent state
	r.Get("/messages", s.getMessages)
	r.Get("/state", s.getState)
	r.Get("/tools", s.getTools)
	r.Get("/config", s.getConfig)

	// Event streaming (SSE)
	r.Get("/event", s.busEvents)

	// Prometheus
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

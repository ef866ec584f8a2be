package api

import (
	"net/http"
	"time"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Мутирующие маршруты дополнительно ограничены по частоте.
	mutating := chain
	if h.cache != nil {
		mutating = Chain(
			Recovery(h.logger),
			Logging(h.logger),
			RateLimit(h.cache, 60, time.Minute, h.logger),
		)
	}

	// Process types
	mux.Handle("GET /api/v1/process-types", chain(http.HandlerFunc(h.ListProcessTypes)))
	mux.Handle("POST /api/v1/process-types", mutating(http.HandlerFunc(h.CreateProcessType)))
	mux.Handle("GET /api/v1/process-types/{id}", chain(http.HandlerFunc(h.GetProcessType)))
	mux.Handle("GET /api/v1/process-types/{id}/steps", chain(http.HandlerFunc(h.ListTypeSteps)))
	mux.Handle("POST /api/v1/process-types/{id}/instances", mutating(http.HandlerFunc(h.CreateInstance)))

	// Instances
	mux.Handle("GET /api/v1/instances", chain(http.HandlerFunc(h.ListInstances)))
	mux.Handle("GET /api/v1/instances/{id}", chain(http.HandlerFunc(h.GetInstance)))
	mux.Handle("POST /api/v1/instances/{id}/cancel", mutating(http.HandlerFunc(h.CancelInstance)))

	// Step executions
	mux.Handle("POST /api/v1/step-executions/{id}/execute", mutating(http.HandlerFunc(h.ExecuteStep)))
	mux.Handle("POST /api/v1/step-executions/{id}/attachments", mutating(http.HandlerFunc(h.CreateAttachment)))
	mux.Handle("GET /api/v1/step-executions/{id}/signature-requirements", chain(http.HandlerFunc(h.ListRequirements)))
	mux.Handle("POST /api/v1/step-executions/{id}/signature-requirements", mutating(http.HandlerFunc(h.CreateRequirement)))

	// Signatures
	mux.Handle("POST /api/v1/signature-requirements/{id}/sign", mutating(http.HandlerFunc(h.Sign)))

	// Child processes
	mux.Handle("POST /api/v1/instances/{id}/child-configs", mutating(http.HandlerFunc(h.CreateChildConfig)))
	mux.Handle("GET /api/v1/instances/{id}/child-configs", chain(http.HandlerFunc(h.ListChildConfigs)))
	mux.Handle("GET /api/v1/instances/{id}/children", chain(http.HandlerFunc(h.ListChildren)))
	mux.Handle("POST /api/v1/child-configs/{id}/spawn", mutating(http.HandlerFunc(h.SpawnChild)))
}

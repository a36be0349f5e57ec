package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
	"credibridge-backend/internal/service"
)

// NewRouter registers every API route plus /healthz and /metrics.
func NewRouter(svc *service.Services, m *metrics.Metrics) *mux.Router {
	h := NewHandler(svc)
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	// Routes live on the root router so a method mismatch answers 405.
	api := &prefixed{router: router, prefix: "/api/v1"}

	api.HandleFunc("/members", h.RegisterMember).Methods(http.MethodPost)
	api.HandleFunc("/members", h.ListMembers).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}", h.GetMember).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}/transactions", h.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}/requests", h.ListMoneyRequests).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}/borrowers", h.ListBorrowers).Methods(http.MethodGet)

	api.HandleFunc("/families", h.CreateFamily).Methods(http.MethodPost)
	api.HandleFunc("/families/{id}", h.GetFamily).Methods(http.MethodGet)
	api.HandleFunc("/families/{id}/members", h.ListFamilyMembers).Methods(http.MethodGet)
	api.HandleFunc("/families/{id}/members", h.AddFamilyMember).Methods(http.MethodPost)
	api.HandleFunc("/families/{id}/loans", h.CreateLoan).Methods(http.MethodPost)

	api.HandleFunc("/requests", h.CreateMoneyRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}", h.GetMoneyRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/resolve", h.ResolveMoneyRequest).Methods(http.MethodPost)

	api.HandleFunc("/debts/resolve", h.ResolveDebt).Methods(http.MethodPost)

	api.HandleFunc("/merchants", h.CreateMerchant).Methods(http.MethodPost)
	api.HandleFunc("/merchants", h.ListMerchants).Methods(http.MethodGet)
	api.HandleFunc("/merchants/{id}/payments", h.PayMerchant).Methods(http.MethodPost)

	api.HandleFunc("/reconciliations", h.ListReconciliations).Methods(http.MethodGet)
	api.HandleFunc("/reconciliations/{id}/close", h.CloseReconciliation).Methods(http.MethodPost)

	return router
}

type prefixed struct {
	router *mux.Router
	prefix string
}

func (p *prefixed) HandleFunc(path string, f http.HandlerFunc) *mux.Route {
	return p.router.HandleFunc(p.prefix+path, f)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

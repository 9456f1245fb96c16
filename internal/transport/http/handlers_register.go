package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate/internal/audit"
	"authgate/internal/clients"
	"authgate/internal/oauth/models"
	"authgate/internal/platform/metrics"
)

// RegistrationHandler serves dynamic client registration.
type RegistrationHandler struct {
	service *clients.RegistrationService
	audit   audit.Publisher
	metrics *metrics.Metrics
}

func NewRegistrationHandler(service *clients.RegistrationService, auditor audit.Publisher, m *metrics.Metrics) *RegistrationHandler {
	return &RegistrationHandler{service: service, audit: auditor, metrics: m}
}

func (h *RegistrationHandler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
}

func (h *RegistrationHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "invalid request body"))
		return
	}
	result, oerr := h.service.Register(r.Context(), req)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	h.metrics.ClientsRegistered.Inc()
	h.audit.Publish(r.Context(), audit.Event{
		Type:     audit.EventClientRegistered,
		ClientID: result.Client.ClientID,
		At:       time.Now(),
	})
	writeJSON(w, http.StatusCreated, result)
}

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/parrotlabs/voiceforge/internal/whop"
)

const maxWebhookBody = 1 << 20

// handleWebhookProbe answers provider dashboard reachability checks.
func (s *Server) handleWebhookProbe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "Webhook endpoint is reachable. Use POST to send webhooks.",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePaymentWebhook receives provider-pushed payment events. A 200 is
// returned for every recognized-but-inert delivery so the provider does not
// retry-storm; only authenticity and business-payload failures are rejected.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	headers := whop.WebhookHeaders{
		ID:        headerWithFallback(r, whop.HeaderWebhookID, "x-webhook-id"),
		Timestamp: headerWithFallback(r, whop.HeaderWebhookTimestamp, "x-webhook-timestamp"),
		Signature: headerWithFallback(r, whop.HeaderWebhookSignature, "x-webhook-signature"),
	}

	if err := s.payments.HandleWebhook(r.Context(), payload, headers); err != nil {
		s.log.Error("payment webhook rejected", "err", err)
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func headerWithFallback(r *http.Request, primary, fallback string) string {
	if v := r.Header.Get(primary); v != "" {
		return v
	}
	return r.Header.Get(fallback)
}

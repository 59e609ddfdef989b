package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/catalog"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/metrics"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/webhook"
)

type createIntentRequest struct {
	Amount int64              `json:"amount"`
	Items  []catalog.LineItem `json:"items"`
}

type cancelIntentRequest struct {
	ID string `json:"id"`
}

// handleCreatePaymentIntent creates a funds hold for the buyer's cart.
// When line items are present the amount is recomputed from the trusted
// catalog; a client-supplied amount is only accepted for item-less calls
// and is still validated by the manager.
func (s *Server) handleCreatePaymentIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
		return
	}

	amount := req.Amount
	if len(req.Items) > 0 {
		computed, err := s.catalog.ComputeAmount(req.Items)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		amount = computed
	}

	intent, err := s.manager.CreateIntent(c.Request.Context(), amount)
	if err != nil {
		s.writeManagerError(c, err, "payment intent could not be created")
		return
	}

	metrics.IntentsCreatedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"id":           intent.ID,
		"clientSecret": intent.ClientSecret,
		"amount":       intent.Amount,
		"message":      "Created",
	})
}

func (s *Server) handleCancelPaymentIntent(c *gin.Context) {
	var req cancelIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
		return
	}

	intent, err := s.manager.CancelIntent(c.Request.Context(), req.ID)
	if err != nil {
		s.writeManagerError(c, err, "payment intent could not be canceled")
		return
	}

	metrics.IntentsCanceledTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"id": intent.ID, "message": "Canceled"})
}

// handleStripeEvent is the webhook ingress. The signature is checked over
// the exact raw bytes before anything is parsed; the response never says
// why verification failed. A cryptographically valid delivery is always
// acknowledged, even when reconciliation skips it, so the gateway does
// not redeliver forever.
func (s *Server) handleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	if err := s.verifier.Verify(payload, c.GetHeader("Stripe-Signature")); err != nil {
		metrics.WebhookVerificationFailuresTotal.Inc()
		s.logger.Warn("webhook rejected", "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	ev, err := webhook.ParseEvent(payload)
	if err != nil {
		// Signed by the gateway but not shaped like an event. Ack it,
		// redelivery would not improve matters.
		s.logger.Error("verified payload not parseable", "error", err)
		metrics.WebhookEventsTotal.WithLabelValues("unparseable").Inc()
		c.Status(http.StatusOK)
		return
	}

	outcome, err := s.manager.Reconcile(c.Request.Context(), ev)
	if err != nil {
		s.logger.Error("reconcile failed", "event_id", ev.EventID, "error", err)
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		c.Status(http.StatusInternalServerError)
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(outcome)).Inc()
	c.Status(http.StatusOK)
}

func (s *Server) handleListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": s.catalog.Products()})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.health != nil {
		body["database"] = s.health()
	}
	c.JSON(http.StatusOK, body)
}

// writeManagerError maps manager errors onto caller-safe responses.
// Gateway failures are surfaced generically; their detail stays in logs.
func (s *Server) writeManagerError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownProduct),
		errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrIntentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": domain.ErrIntentNotFound.Error()})
	case errors.Is(err, domain.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"message": domain.ErrNotCancellable.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": generic})
	}
}

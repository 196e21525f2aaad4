package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/service"
	"github.com/attendly/ticketing/pkg/logger"
)

// WebhookHandler handles Stripe webhook events
type WebhookHandler struct {
	regService    service.RegistrationService
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(regService service.RegistrationService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		regService:    regService,
		webhookSecret: webhookSecret,
	}
}

// HandleStripeWebhook handles incoming Stripe webhook events
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	log := logger.Get()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to read webhook body: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to verify webhook signature: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	log.Info(fmt.Sprintf("Received Stripe webhook event: %s", event.Type))

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(c, event)
	case "payment_intent.canceled":
		h.handlePaymentIntentCanceled(c, event)
	default:
		log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event type not handled"})
	}
}

// handlePaymentIntentSucceeded confirms the registration holding the intent
func (h *WebhookHandler) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.succeeded: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	registrationID := paymentIntent.Metadata["registration_id"]
	log.Info(fmt.Sprintf("Payment succeeded: payment_ref=%s, registration_id=%s, amount=%d %s",
		paymentIntent.ID, registrationID, paymentIntent.Amount, paymentIntent.Currency))

	h.settle(c, paymentIntent.ID, true, "")
}

// handlePaymentIntentFailed cancels the pending registration and returns
// its tickets
func (h *WebhookHandler) handlePaymentIntentFailed(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.payment_failed: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	failureMessage := "payment failed"
	if paymentIntent.LastPaymentError != nil && paymentIntent.LastPaymentError.Msg != "" {
		failureMessage = paymentIntent.LastPaymentError.Msg
	}

	log.Warn(fmt.Sprintf("Payment failed: payment_ref=%s, registration_id=%s, reason=%s",
		paymentIntent.ID, paymentIntent.Metadata["registration_id"], failureMessage))

	h.settle(c, paymentIntent.ID, false, failureMessage)
}

// handlePaymentIntentCanceled treats a canceled intent like a failure
func (h *WebhookHandler) handlePaymentIntentCanceled(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.canceled: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	log.Info(fmt.Sprintf("Payment canceled: payment_ref=%s, registration_id=%s",
		paymentIntent.ID, paymentIntent.Metadata["registration_id"]))

	h.settle(c, paymentIntent.ID, false, "payment canceled")
}

// settle applies the settlement and always acknowledges receipt. An
// unknown payment ref or a replayed event is not an error worth a retry
// storm from Stripe.
func (h *WebhookHandler) settle(c *gin.Context, paymentRef string, succeeded bool, reason string) {
	log := logger.Get()

	err := h.regService.HandlePaymentSettled(c.Request.Context(), paymentRef, succeeded, reason)
	if err != nil && !errors.Is(err, domain.ErrRegistrationNotFound) {
		log.Error(fmt.Sprintf("Failed to settle payment %s: %v", paymentRef, err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

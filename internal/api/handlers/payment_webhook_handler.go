package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// PaymentEventService consumes payment outcome events
type PaymentEventService interface {
	ConfirmPayment(ctx context.Context, paymentRef, chargeRef string) error
	MarkPaymentFailed(ctx context.Context, paymentRef string) error
}

// TransferEventService consumes payout transfer events
type TransferEventService interface {
	ConfirmPayout(ctx context.Context, transferRef string) error
	MarkPayoutReversed(ctx context.Context, transferRef string) error
}

// PaymentWebhookHandler receives signed payment-provider events and applies
// them to settlements. Signature verification is the auth; there is no JWT on
// this path.
type PaymentWebhookHandler struct {
	settlements    PaymentEventService
	payouts        TransferEventService
	settlementRepo repositories.SettlementRepository
	webhookSecret  string
	tolerance      time.Duration
}

// NewPaymentWebhookHandler creates a new payment webhook handler
func NewPaymentWebhookHandler(
	settlements PaymentEventService,
	payouts TransferEventService,
	settlementRepo repositories.SettlementRepository,
	webhookSecret string,
	tolerance time.Duration,
) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		settlements:    settlements,
		payouts:        payouts,
		settlementRepo: settlementRepo,
		webhookSecret:  webhookSecret,
		tolerance:      tolerance,
	}
}

// HandleWebhook handles POST /api/webhooks/payments
func (h *PaymentWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())

	if strings.TrimSpace(h.webhookSecret) == "" {
		respondWithError(w, http.StatusServiceUnavailable, "payment webhook not configured", "")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		respondWithError(w, http.StatusBadRequest, "missing Stripe-Signature header", "")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body", "")
		return
	}

	event, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.webhookSecret, h.tolerance)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid signature", "")
		return
	}

	eventType := string(event.Type)
	logger.Info().
		Str("provider_event_id", event.ID).
		Str("event_type", eventType).
		Msg("payment provider event received")

	// Idempotency ledger: a replayed event id is acknowledged without
	// reprocessing.
	if err := h.settlementRepo.RecordWebhookEvent(r.Context(), &entities.WebhookEvent{
		ID:         uuid.New().String(),
		EventID:    event.ID,
		EventType:  eventType,
		Payload:    body,
		Status:     entities.WebhookEventProcessed,
		ReceivedAt: time.Now(),
	}); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			logger.Info().
				Str("provider_event_id", event.ID).
				Msg("duplicate payment provider event ignored")
			respondWithJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to record provider event", "")
		return
	}

	// Processing failures are recorded on the ledger for operator review and
	// acknowledged: the event is already stored, so a provider retry would be
	// deduplicated rather than reprocessed.
	if err := h.dispatch(r.Context(), &event); err != nil {
		logger.Error().Err(err).
			Str("provider_event_id", event.ID).
			Str("event_type", eventType).
			Msg("payment provider event processing failed")
		if markErr := h.settlementRepo.MarkWebhookEvent(r.Context(), event.ID, entities.WebhookEventFailed, err); markErr != nil {
			logger.Error().Err(markErr).Str("provider_event_id", event.ID).Msg("failed to mark webhook event")
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "failed"})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *PaymentWebhookHandler) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		intent, err := parsePaymentIntent(event)
		if err != nil {
			return err
		}
		chargeRef := ""
		if intent.LatestCharge != nil {
			chargeRef = intent.LatestCharge.ID
		}
		return h.settlements.ConfirmPayment(ctx, paymentRefOf(intent), chargeRef)

	case "payment_intent.payment_failed":
		intent, err := parsePaymentIntent(event)
		if err != nil {
			return err
		}
		return h.settlements.MarkPaymentFailed(ctx, paymentRefOf(intent))

	case "transfer.created":
		transfer, err := parseTransfer(event)
		if err != nil {
			return err
		}
		return h.payouts.ConfirmPayout(ctx, transfer.ID)

	case "transfer.reversed":
		transfer, err := parseTransfer(event)
		if err != nil {
			return err
		}
		return h.payouts.MarkPayoutReversed(ctx, transfer.ID)

	default:
		// Unhandled event types are acknowledged and ignored.
		return nil
	}
}

func parsePaymentIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, apperrors.NewValidationError("invalid payment intent payload")
	}
	return &intent, nil
}

func parseTransfer(event *stripe.Event) (*stripe.Transfer, error) {
	var transfer stripe.Transfer
	if err := json.Unmarshal(event.Data.Raw, &transfer); err != nil {
		return nil, apperrors.NewValidationError("invalid transfer payload")
	}
	return &transfer, nil
}

// paymentRefOf resolves the settlement's payment reference from the intent.
// The outer layer stamps it into the intent metadata at charge time; older
// intents fall back to the intent id itself.
func paymentRefOf(intent *stripe.PaymentIntent) string {
	if ref := strings.TrimSpace(intent.Metadata["payment_ref"]); ref != "" {
		return ref
	}
	return intent.ID
}

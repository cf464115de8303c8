package routes

import (
	"net/http"

	"github.com/slotcare/booking-backend/internal/api/handlers"
	"github.com/slotcare/booking-backend/internal/api/middleware"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler    *handlers.AppointmentHandler
	paymentWebhookHandler *handlers.PaymentWebhookHandler
	payoutHandler         *handlers.PayoutHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	paymentWebhookHandler *handlers.PaymentWebhookHandler,
	payoutHandler *handlers.PayoutHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		appointmentHandler:    appointmentHandler,
		paymentWebhookHandler: paymentWebhookHandler,
		payoutHandler:         payoutHandler,
		metrics:               metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Availability endpoints
	r.mux.HandleFunc("GET /api/providers/{id}/slots", r.appointmentHandler.GetSlots)

	// Appointment endpoints
	r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.BookAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	r.mux.HandleFunc("POST /api/appointments/{id}/reschedule", r.appointmentHandler.RescheduleAppointment)
	r.mux.HandleFunc("PATCH /api/appointments/{id}/status", r.appointmentHandler.UpdateStatus)
	r.mux.HandleFunc("POST /api/appointments/{id}/cancel", r.appointmentHandler.CancelAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}/settlement", r.appointmentHandler.GetSettlement)

	// Payment webhook endpoint for settlement events
	if r.paymentWebhookHandler != nil {
		r.mux.HandleFunc("POST /api/webhooks/payments", r.paymentWebhookHandler.HandleWebhook)
	}

	// Operator endpoints
	r.mux.HandleFunc("POST /internal/payouts/sweep", r.payoutHandler.TriggerSweep)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/slotcare/booking-backend/internal/application/services"
	"github.com/slotcare/booking-backend/internal/domain/entities"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// BookingService defines the booking operations used by the handler
type BookingService interface {
	Book(ctx context.Context, req services.BookAppointmentRequest) (*entities.Appointment, error)
	Reschedule(ctx context.Context, appointmentID, date, startTime string) (*entities.Appointment, error)
}

// AppointmentService defines the status/cancel operations used by the handler
type AppointmentService interface {
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)
	UpdateStatus(ctx context.Context, id string, newStatus entities.AppointmentStatus) (*entities.Appointment, error)
	Cancel(ctx context.Context, id, reason string) (*entities.Appointment, error)
}

// AvailabilityService defines slot listing used by the handler
type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, providerID, date string, durationMinutes int) ([]string, error)
	GetAvailableSlotsForType(ctx context.Context, providerID, date, appointmentTypeID string) ([]string, error)
}

// SettlementReader exposes the settlement reconciliation read
type SettlementReader interface {
	GetByAppointmentID(ctx context.Context, appointmentID string) (*entities.Settlement, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	booking      BookingService
	appointments AppointmentService
	availability AvailabilityService
	settlements  SettlementReader
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(
	booking BookingService,
	appointments AppointmentService,
	availability AvailabilityService,
	settlements SettlementReader,
) *AppointmentHandler {
	return &AppointmentHandler{
		booking:      booking,
		appointments: appointments,
		availability: availability,
		settlements:  settlements,
	}
}

// GetSlots handles GET /api/providers/{id}/slots
func (h *AppointmentHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required", "")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		respondWithError(w, http.StatusBadRequest, "date query parameter is required", "")
		return
	}

	if typeID := r.URL.Query().Get("appointment_type_id"); typeID != "" {
		slots, err := h.availability.GetAvailableSlotsForType(r.Context(), providerID, date, typeID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"slots": slots,
		})
		return
	}

	duration := 0
	if durationStr := r.URL.Query().Get("duration"); durationStr != "" {
		parsed, err := strconv.Atoi(durationStr)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "duration must be a positive integer", "")
			return
		}
		duration = parsed
	}

	slots, err := h.availability.GetAvailableSlots(r.Context(), providerID, date, duration)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
	})
}

type bookRequest struct {
	ProviderID        string `json:"provider_id"`
	RequesterID       string `json:"requester_id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	DurationMinutes   int    `json:"duration_minutes"`
	Reason            string `json:"reason"`
	Notes             string `json:"notes"`
	AppointmentTypeID string `json:"appointment_type_id"`
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload", "")
		return
	}

	appointment, err := h.booking.Book(r.Context(), services.BookAppointmentRequest{
		ProviderID:        req.ProviderID,
		RequesterID:       req.RequesterID,
		Date:              req.Date,
		StartTime:         req.StartTime,
		DurationMinutes:   req.DurationMinutes,
		Reason:            req.Reason,
		Notes:             req.Notes,
		AppointmentTypeID: req.AppointmentTypeID,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// RescheduleAppointment handles POST /api/appointments/{id}/reschedule
func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload", "")
		return
	}

	appointment, err := h.booking.Reschedule(r.Context(), id, req.Date, req.StartTime)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

type statusRequest struct {
	Status entities.AppointmentStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/appointments/{id}/status
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload", "")
		return
	}
	if req.Status == "" {
		respondWithError(w, http.StatusBadRequest, "status is required", "")
		return
	}

	appointment, err := h.appointments.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelAppointment handles POST /api/appointments/{id}/cancel
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req cancelRequest
	if r.Body != nil {
		// Reason is optional; an empty body cancels without one.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	appointment, err := h.appointments.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.appointments.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

// GetSettlement handles GET /api/appointments/{id}/settlement
func (h *AppointmentHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.settlements.GetByAppointmentID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, settlement)
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message, code string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	respondWithJSON(w, statusCode, body)
}

// respondWithAppError maps an application error to its HTTP status and emits
// the machine-readable code alongside the message.
func respondWithAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeState:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		status = http.StatusConflict
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		status = http.StatusBadGateway
	}

	respondWithError(w, status, appErr.Message, appErr.Code)
}

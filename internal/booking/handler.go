package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/sheshasaibaba/taxbynav-backend/internal/auth"
)

const maxJSONBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// MailSender delivers best-effort booking notifications. May be nil when
// email is not configured.
type MailSender interface {
	SendBookingConfirmation(to, name string, slotStart time.Time, duration time.Duration, message string) error
	SendAdminNotification(adminEmail, userEmail, userName string, slotStart time.Time, duration time.Duration, message string) error
}

type Handler struct {
	service    *Service
	users      *auth.Repository
	mail       MailSender
	adminEmail string
}

func NewHandler(service *Service, users *auth.Repository) *Handler {
	return &Handler{service: service, users: users}
}

func (h *Handler) WithMail(mail MailSender, adminEmail string) *Handler {
	h.mail = mail
	h.adminEmail = strings.TrimSpace(strings.ToLower(adminEmail))
	return h
}

type bookRequest struct {
	SlotStart time.Time `json:"slot_start"`
	Message   string    `json:"message"`
}

type slotsResponse struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Slots is public: availability for a day can be browsed before logging in.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("date"), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.service.Slots(r.Context(), day)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{Date: day.Format(dateLayout), Slots: slots})
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body bookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if body.SlotStart.IsZero() {
		writeError(w, http.StatusBadRequest, "slot_start is required")
		return
	}
	body.Message = strings.TrimSpace(body.Message)
	if !utf8.ValidString(body.Message) || len(body.Message) > 1000 {
		writeError(w, http.StatusBadRequest, "message is invalid")
		return
	}

	userID := auth.UserID(r.Context())
	appt, err := h.service.Book(r.Context(), userID, body.SlotStart, body.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSlot):
			writeError(w, http.StatusBadRequest, "slot_start is not a bookable slot")
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, "slot is no longer available")
		case errors.Is(err, ErrDailyLimitExceeded):
			writeError(w, http.StatusConflict, "daily booking limit reached")
		case errors.Is(err, ErrForbidden):
			writeError(w, http.StatusUnauthorized, "account not found")
		default:
			sentry.CaptureException(err)
			writeError(w, http.StatusInternalServerError, "failed to book appointment")
		}
		return
	}

	h.notify(r.Context(), userID, appt)

	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var fromDate *time.Time
	if raw := r.URL.Query().Get("from_date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from_date must be YYYY-MM-DD")
			return
		}
		fromDate = &parsed
	}

	appointments, err := h.service.ForUser(r.Context(), auth.UserID(r.Context()), fromDate)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	writeJSON(w, http.StatusOK, appointments)
}

// ListAdmin returns every appointment with owner details, restricted to
// the configured admin account.
func (h *Handler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil || h.adminEmail == "" || strings.ToLower(user.Email) != h.adminEmail {
		writeError(w, http.StatusForbidden, "not authorized to view all appointments")
		return
	}

	appointments, err := h.service.AllWithUsers(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	writeJSON(w, http.StatusOK, appointments)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	err := h.service.Cancel(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrForbidden):
			writeError(w, http.StatusForbidden, "appointment belongs to another user")
		default:
			sentry.CaptureException(err)
			writeError(w, http.StatusInternalServerError, "failed to cancel appointment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// notify sends confirmation and admin emails in the background. Delivery
// failure never affects the booking response.
func (h *Handler) notify(ctx context.Context, userID string, appt Appointment) {
	if h.mail == nil {
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		sentry.CaptureException(err)
		return
	}

	duration := h.service.SlotDuration()
	go func() {
		if err := h.mail.SendBookingConfirmation(user.Email, user.Name, appt.SlotStart, duration, appt.Message); err != nil {
			sentry.CaptureException(err)
		}
		if h.adminEmail != "" {
			if err := h.mail.SendAdminNotification(h.adminEmail, user.Email, user.Name, appt.SlotStart, duration, appt.Message); err != nil {
				sentry.CaptureException(err)
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package booking

import "time"

// Appointment occupies exactly one slot. slot_start carries a unique
// index, so the schema itself forbids two bookings for the same slot.
type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SlotStart time.Time `json:"slot_start"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppointmentWithUser is the admin listing shape.
type AppointmentWithUser struct {
	Appointment
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name,omitempty"`
}

// Slot is derived from business-hour configuration, never stored.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

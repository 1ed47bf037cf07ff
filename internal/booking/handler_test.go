package booking

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlotsRejectsBadDate(t *testing.T) {
	h := NewHandler(NewService(nil, 9, 17, 30*time.Minute, 1), nil)

	for _, query := range []string{"", "date=not-a-date", "date=2026-13-40", "date=09/07/2026"} {
		req := httptest.NewRequest(http.MethodGet, "/slots?"+query, nil)
		rec := httptest.NewRecorder()
		h.Slots(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestBookRejectsBadBody(t *testing.T) {
	h := NewHandler(NewService(nil, 9, 17, 30*time.Minute, 1), nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown field", `{"slot_start":"2026-09-07T09:00:00Z","surprise":true}`},
		{"missing slot_start", `{"message":"hi"}`},
		{"long message", `{"slot_start":"2026-09-07T09:00:00Z","message":"` + strings.Repeat("m", 1001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Book(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBookRejectsOffGridViaHTTP(t *testing.T) {
	h := NewHandler(NewService(nil, 9, 17, 30*time.Minute, 1), nil)

	// 08:00 is before business hours, so the repository is never reached
	req := httptest.NewRequest(http.MethodPost, "/appointments",
		strings.NewReader(`{"slot_start":"2026-09-07T08:00:00Z"}`))
	rec := httptest.NewRecorder()
	h.Book(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not a bookable slot") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCancelRejectsMalformedID(t *testing.T) {
	h := NewHandler(NewService(nil, 9, 17, 30*time.Minute, 1), nil)

	req := httptest.NewRequest(http.MethodDelete, "/appointments/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRejectsBadFromDate(t *testing.T) {
	h := NewHandler(NewService(nil, 9, 17, 30*time.Minute, 1), nil)

	req := httptest.NewRequest(http.MethodGet, "/appointments?from_date=soon", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

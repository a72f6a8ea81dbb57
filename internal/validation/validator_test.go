package validation

import (
	"testing"

	"portal-booking/internal/models"
)

func validRequest() models.BookingRequest {
	return models.BookingRequest{
		Name:          "Asha",
		Email:         "asha@example.com",
		Phone:         "+91 98000 00000",
		SessionID:     "mock-interview",
		Date:          "2026-02-05",
		Time:          "02:00 PM",
		TransactionID: "UTR123456",
		Amount:        99900,
		Timestamp:     "2026-02-04T10:00:00Z",
		Status:        models.BookingStatusPending,
	}
}

func TestBookingRequestValid(t *testing.T) {
	v := New()
	if err := v.Struct(validRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestBookingRequestInvalidFields(t *testing.T) {
	v := New()
	req := validRequest()
	req.Time = "09:00 AM"
	req.Date = "05/02/2026"
	req.Status = models.BookingStatusVerified
	req.Email = "nope"

	err := v.Struct(req)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	details := map[string]string{}
	for _, fe := range v.ValidationErrors(err) {
		details[fe.Field()] = fe.Tag()
	}
	want := map[string]string{"Time": "timelabel", "Date": "date", "Status": "eq", "Email": "email"}
	for field, tag := range want {
		if details[field] != tag {
			t.Fatalf("expected %s=%s, got %v", field, tag, details)
		}
	}
}

func TestValidationErrorsNil(t *testing.T) {
	if New().ValidationErrors(nil) != nil {
		t.Fatalf("expected nil")
	}
}

package models

import "time"

const (
	BookingStatusPending  = "pending_verification"
	BookingStatusVerified = "verified"
	BookingStatusRejected = "rejected"

	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// ActiveBookingStatuses hold a slot; rejected bookings release it.
var ActiveBookingStatuses = []string{BookingStatusPending, BookingStatusVerified}

func IsActiveBookingStatus(status string) bool {
	return status == BookingStatusPending || status == BookingStatusVerified
}

// BookingSlotKey identifies one time slot on one date.
func BookingSlotKey(date, time string) string {
	return date + "|" + time
}

type SessionOffering struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DurationLabel   string   `json:"durationLabel"`
	PriceMinorUnits int64    `json:"priceMinorUnits"`
	Description     string   `json:"description"`
	Features        []string `json:"features"`
}

// Profile is the signed-in user as supplied by the host application.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Goal  string `json:"goal"`
}

// BookingRequest is the body of POST /mentorship/book.
type BookingRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,phone"`
	Goal          string `json:"goal"`
	SessionID     string `json:"sessionId" validate:"required"`
	Date          string `json:"date" validate:"required,date"`
	Time          string `json:"time" validate:"required,timelabel"`
	TransactionID string `json:"transactionId" validate:"required"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	Timestamp     string `json:"timestamp" validate:"required"`
	Status        string `json:"status" validate:"required,eq=pending_verification"`
}

// BookingAck is whatever the collaborator returns for a created booking.
type BookingAck struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

type AvailabilityResponse struct {
	Date        string   `json:"date,omitempty"`
	BookedSlots []string `json:"bookedSlots"`
}

type Booking struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	SessionID       string    `bson:"sessionId" json:"sessionId"`
	SessionTitle    string    `bson:"sessionTitle" json:"sessionTitle"`
	Name            string    `bson:"name" json:"name"`
	Email           string    `bson:"email" json:"email"`
	Phone           string    `bson:"phone" json:"phone"`
	Goal            string    `bson:"goal" json:"goal"`
	Date            string    `bson:"date" json:"date"`
	Time            string    `bson:"time" json:"time"`
	TransactionID   string    `bson:"transactionId" json:"transactionId"`
	Amount          int64     `bson:"amount" json:"amount"`
	Status          string    `bson:"status" json:"status"`
	ClientTimestamp string    `bson:"clientTimestamp" json:"clientTimestamp"`
	// SlotKey is set only while the booking holds its slot.
	SlotKey         string    `bson:"slotKey,omitempty" json:"-"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

package wizard

import (
	"context"
	"errors"
	"time"

	"portal-booking/internal/models"
	"portal-booking/internal/schedule"
)

type Step int

const (
	StepClosed Step = iota
	StepSelectSlot
	StepContactDetails
	StepPayment
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepClosed:
		return "closed"
	case StepSelectSlot:
		return "select_slot"
	case StepContactDetails:
		return "contact_details"
	case StepPayment:
		return "payment"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

type PaymentStatus string

const (
	PaymentIdle       PaymentStatus = "idle"
	PaymentConnecting PaymentStatus = "connecting"
	PaymentProcessing PaymentStatus = "processing"
	PaymentVerified   PaymentStatus = "verified"
)

type AvailabilityStatus string

const (
	AvailabilityNone    AvailabilityStatus = "none"
	AvailabilityLoading AvailabilityStatus = "loading"
	AvailabilityReady   AvailabilityStatus = "ready"
	// AvailabilityStale means a refresh failed and the last good result for the same date is shown.
	AvailabilityStale AvailabilityStatus = "stale"
	AvailabilityError AvailabilityStatus = "error"
)

var (
	ErrWrongStep               = errors.New("action not allowed at this step")
	ErrIncompleteStep          = errors.New("required fields are missing")
	ErrDateInPast              = errors.New("date is in the past")
	ErrUnknownSlot             = errors.New("time is not offered")
	ErrSlotUnavailable         = errors.New("time is not available")
	ErrAvailabilityUnknown     = errors.New("availability for this date is not known yet")
	ErrAvailabilityUnavailable = errors.New("could not load availability")
	ErrSubmissionInFlight      = errors.New("a submission is already in progress")
	ErrSubmissionFailed        = errors.New("booking submission failed")
)

const (
	noticeAvailabilityFailed = "We couldn't load availability for this date. Please try again."
	noticeSlotTaken          = "Your selected time was just booked. Please pick another slot."
	noticeSubmissionFailed   = "We couldn't confirm your booking. Please check your connection and try again."
)

// Collaborator is the remote booking backend.
type Collaborator interface {
	BookedSlots(ctx context.Context, date string) ([]string, error)
	CreateBooking(ctx context.Context, booking models.BookingRequest) (models.BookingAck, error)
}

// ProgressReporter receives every payment status change during a submission.
type ProgressReporter interface {
	Report(status PaymentStatus)
}

type ProgressFunc func(status PaymentStatus)

func (f ProgressFunc) Report(status PaymentStatus) {
	f(status)
}

// Pacing holds the presentation delays shown between submission stages.
type Pacing struct {
	Connecting time.Duration
	Processing time.Duration
	Verified   time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		Connecting: 1500 * time.Millisecond,
		Processing: 2 * time.Second,
		Verified:   time.Second,
	}
}

type Draft struct {
	Session              models.SessionOffering `json:"session"`
	Date                 string                 `json:"date,omitempty"`
	Time                 string                 `json:"time,omitempty"`
	Contact              models.Contact         `json:"contact"`
	TransactionReference string                 `json:"transactionReference,omitempty"`
	TermsAccepted        bool                   `json:"termsAccepted"`
	AmountMinorUnits     int64                  `json:"amountMinorUnits"`
}

type Availability struct {
	Date             string             `json:"date,omitempty"`
	Status           AvailabilityStatus `json:"status"`
	BookedTimeLabels []string           `json:"bookedTimeLabels,omitempty"`
	Error            string             `json:"error,omitempty"`

	loaded bool
}

// View is a point-in-time copy of the wizard for rendering.
type View struct {
	Step          Step               `json:"step"`
	StepName      string             `json:"stepName"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	Draft         *Draft             `json:"draft,omitempty"`
	Availability  Availability       `json:"availability"`
	Slots         []schedule.Slot    `json:"slots,omitempty"`
	CanContinue   bool               `json:"canContinue"`
	Notice        string             `json:"notice,omitempty"`
	Booking       *models.BookingAck `json:"booking,omitempty"`
}

type SubmitInput struct {
	AcceptTerms          bool
	TransactionReference string
}

package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"portal-booking/internal/models"
	"portal-booking/internal/schedule"
)

type Options struct {
	Location *time.Location
	Now      func() time.Time
	Pacing   Pacing
	Reporter ProgressReporter
	Logger   *slog.Logger
}

// Wizard drives one booking attempt from slot selection to confirmation.
// Remote calls run without holding the lock; results are applied only if
// they still match the current draft.
type Wizard struct {
	mu sync.Mutex

	collab   Collaborator
	resolver *schedule.Resolver
	loc      *time.Location
	now      func() time.Time
	pacing   Pacing
	reporter ProgressReporter
	log      *slog.Logger

	step    Step
	payment PaymentStatus
	draft   *Draft
	avail   Availability
	fetchID uint64
	notice  string
	ack     *models.BookingAck
}

func New(collab Collaborator, opts Options) *Wizard {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Wizard{
		collab:   collab,
		resolver: schedule.NewResolver(loc),
		loc:      loc,
		now:      now,
		pacing:   opts.Pacing,
		reporter: opts.Reporter,
		log:      log,
		step:     StepClosed,
		payment:  PaymentIdle,
		avail:    Availability{Status: AvailabilityNone},
	}
}

// inFlight reports whether a submission owns the wizard. Caller holds mu.
func (w *Wizard) inFlight() bool {
	return w.step == StepPayment && w.payment != PaymentIdle
}

// Open starts a fresh draft for offering, pre-filling contact details from profile.
func (w *Wizard) Open(offering models.SessionOffering, profile *models.Profile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight() {
		return ErrSubmissionInFlight
	}
	w.reset()
	draft := &Draft{
		Session:          offering,
		AmountMinorUnits: offering.PriceMinorUnits,
	}
	if profile != nil {
		draft.Contact = models.Contact{
			Name:  profile.Name,
			Email: profile.Email,
			Phone: profile.Phone,
		}
	}
	w.draft = draft
	w.step = StepSelectSlot
	return nil
}

// reset discards the draft and invalidates any outstanding availability fetch. Caller holds mu.
func (w *Wizard) reset() {
	w.step = StepClosed
	w.payment = PaymentIdle
	w.draft = nil
	w.avail = Availability{Status: AvailabilityNone}
	w.fetchID++
	w.notice = ""
	w.ack = nil
}

// Close abandons the wizard. The draft is discarded.
func (w *Wizard) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight() {
		return ErrSubmissionInFlight
	}
	w.reset()
	return nil
}

// SelectDate sets the draft date, clears any chosen time and loads the booked
// slots for that date.
func (w *Wizard) SelectDate(ctx context.Context, dateStr string) error {
	w.mu.Lock()
	if w.step != StepSelectSlot {
		w.mu.Unlock()
		return ErrWrongStep
	}
	date, err := schedule.ParseDate(dateStr, w.loc)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if date.Before(schedule.StartOfDay(w.now(), w.loc)) {
		w.mu.Unlock()
		return ErrDateInPast
	}
	key := schedule.DateKey(date, w.loc)
	w.draft.Date = key
	w.draft.Time = ""
	w.notice = ""
	w.avail = Availability{Date: key, Status: AvailabilityLoading}
	w.fetchID++
	id := w.fetchID
	w.mu.Unlock()

	return w.load(ctx, key, id)
}

// RefreshAvailability reloads the booked slots for the selected date. A failed
// refresh keeps the previous result, marked stale.
func (w *Wizard) RefreshAvailability(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepSelectSlot {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.draft.Date == "" {
		w.mu.Unlock()
		return ErrIncompleteStep
	}
	key := w.draft.Date
	w.avail.Status = AvailabilityLoading
	w.avail.Error = ""
	w.fetchID++
	id := w.fetchID
	w.mu.Unlock()

	return w.load(ctx, key, id)
}

func (w *Wizard) load(ctx context.Context, date string, id uint64) error {
	booked, err := w.collab.BookedSlots(ctx, date)

	w.mu.Lock()
	defer w.mu.Unlock()

	if id != w.fetchID || w.draft == nil || w.draft.Date != date {
		w.log.Debug("wizard availability: stale response dropped", slog.String("date", date))
		return nil
	}
	if err != nil {
		w.log.Warn("wizard availability: fetch failed", slog.String("date", date), slog.String("error", err.Error()))
		w.avail.Error = noticeAvailabilityFailed
		if w.avail.loaded {
			w.avail.Status = AvailabilityStale
		} else {
			w.avail.Status = AvailabilityError
			w.draft.Time = ""
		}
		w.notice = noticeAvailabilityFailed
		return fmt.Errorf("%w: %v", ErrAvailabilityUnavailable, err)
	}

	labels := make([]string, len(booked))
	copy(labels, booked)
	w.avail = Availability{
		Date:             date,
		Status:           AvailabilityReady,
		BookedTimeLabels: labels,
		loaded:           true,
	}
	if w.notice == noticeAvailabilityFailed {
		w.notice = ""
	}
	if w.draft.Time != "" {
		if slot, ok := schedule.Find(w.slots(), w.draft.Time); !ok || !slot.Available {
			w.draft.Time = ""
			w.notice = noticeSlotTaken
		}
	}
	return nil
}

// slots resolves the catalog against the loaded availability. Caller holds mu.
func (w *Wizard) slots() []schedule.Slot {
	if w.draft == nil || !w.avail.loaded {
		return nil
	}
	date, err := schedule.ParseDate(w.avail.Date, w.loc)
	if err != nil {
		return nil
	}
	return w.resolver.Resolve(date, w.avail.BookedTimeLabels, w.now())
}

// SelectTime picks a time label on the selected date. Only labels resolved as
// available are accepted.
func (w *Wizard) SelectTime(label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSelectSlot {
		return ErrWrongStep
	}
	if w.draft.Date == "" {
		return ErrIncompleteStep
	}
	if !w.avail.loaded {
		return ErrAvailabilityUnknown
	}
	canonical, err := schedule.CanonicalLabel(label)
	if err != nil {
		return ErrUnknownSlot
	}
	slot, ok := schedule.Find(w.slots(), canonical)
	if !ok {
		return ErrUnknownSlot
	}
	if !slot.Available {
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, strings.ToLower(string(slot.Reason)))
	}
	w.draft.Time = slot.Time
	if w.notice == noticeSlotTaken {
		w.notice = ""
	}
	return nil
}

// UpdateContact replaces the contact details on the draft.
func (w *Wizard) UpdateContact(contact models.Contact) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepSelectSlot, StepContactDetails, StepPayment:
	default:
		return ErrWrongStep
	}
	if w.inFlight() {
		return ErrSubmissionInFlight
	}
	w.draft.Contact = contact
	return nil
}

// canContinue checks the guard for leaving the current step. Caller holds mu.
func (w *Wizard) canContinue() bool {
	if w.draft == nil {
		return false
	}
	switch w.step {
	case StepSelectSlot:
		return w.draft.Date != "" && w.draft.Time != "" && w.avail.loaded &&
			w.avail.Status != AvailabilityLoading
	case StepContactDetails:
		return strings.TrimSpace(w.draft.Contact.Name) != "" &&
			strings.TrimSpace(w.draft.Contact.Email) != ""
	default:
		return false
	}
}

// Continue advances from slot selection to contact details, or from contact
// details to payment.
func (w *Wizard) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepSelectSlot, StepContactDetails:
	default:
		return ErrWrongStep
	}
	if w.step == StepSelectSlot && w.avail.Status == AvailabilityLoading {
		return ErrAvailabilityUnknown
	}
	if !w.canContinue() {
		return ErrIncompleteStep
	}
	w.step++
	w.notice = ""
	return nil
}

// Back returns to the previous step. Slot selection is the first step.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight() {
		return ErrSubmissionInFlight
	}
	switch w.step {
	case StepContactDetails, StepPayment:
		w.step--
	case StepSelectSlot:
	default:
		return ErrWrongStep
	}
	w.notice = ""
	return nil
}

// Restart jumps back to slot selection. After a confirmed booking it starts a
// new draft for the same session, keeping the contact details.
func (w *Wizard) Restart() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight() {
		return ErrSubmissionInFlight
	}
	switch w.step {
	case StepClosed:
		return ErrWrongStep
	case StepConfirmed:
		prev := w.draft
		w.reset()
		w.draft = &Draft{
			Session:          prev.Session,
			Contact:          prev.Contact,
			AmountMinorUnits: prev.AmountMinorUnits,
		}
	}
	w.step = StepSelectSlot
	w.notice = ""
	return nil
}

// View returns a snapshot for rendering.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		Step:          w.step,
		StepName:      w.step.String(),
		PaymentStatus: w.payment,
		Availability:  w.avail,
		Slots:         w.slots(),
		CanContinue:   w.canContinue(),
		Notice:        w.notice,
	}
	v.Availability.BookedTimeLabels = append([]string(nil), w.avail.BookedTimeLabels...)
	if w.draft != nil {
		d := *w.draft
		d.Session.Features = append([]string(nil), w.draft.Session.Features...)
		v.Draft = &d
	}
	if w.ack != nil {
		ack := *w.ack
		v.Booking = &ack
	}
	return v
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Busy reports whether a submission is currently running.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight()
}

package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portal-booking/internal/models"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Submit records the payment reference and sends the booking. Progress moves
// through connecting, processing and verified; on success the wizard ends in
// StepConfirmed. On failure it stays on StepPayment with the draft intact.
func (w *Wizard) Submit(ctx context.Context, in SubmitInput) (models.BookingAck, error) {
	w.mu.Lock()
	if w.step != StepPayment {
		w.mu.Unlock()
		return models.BookingAck{}, ErrWrongStep
	}
	if w.payment != PaymentIdle {
		w.mu.Unlock()
		return models.BookingAck{}, ErrSubmissionInFlight
	}
	ref := strings.TrimSpace(in.TransactionReference)
	if !in.AcceptTerms || ref == "" {
		w.mu.Unlock()
		return models.BookingAck{}, ErrIncompleteStep
	}
	d := w.draft
	if d.Date == "" || d.Time == "" || strings.TrimSpace(d.Contact.Name) == "" || strings.TrimSpace(d.Contact.Email) == "" {
		w.mu.Unlock()
		return models.BookingAck{}, ErrIncompleteStep
	}
	d.TransactionReference = ref
	d.TermsAccepted = true
	req := models.BookingRequest{
		Name:          strings.TrimSpace(d.Contact.Name),
		Email:         strings.TrimSpace(d.Contact.Email),
		Phone:         strings.TrimSpace(d.Contact.Phone),
		Goal:          strings.TrimSpace(d.Contact.Goal),
		SessionID:     d.Session.ID,
		Date:          d.Date,
		Time:          d.Time,
		TransactionID: ref,
		Amount:        d.AmountMinorUnits,
		Timestamp:     w.now().UTC().Format(timestampLayout),
		Status:        models.BookingStatusPending,
	}
	w.notice = ""
	w.payment = PaymentConnecting
	w.mu.Unlock()
	w.report(PaymentConnecting)

	if err := sleep(ctx, w.pacing.Connecting); err != nil {
		return models.BookingAck{}, w.fail(err)
	}
	w.setPayment(PaymentProcessing)
	if err := sleep(ctx, w.pacing.Processing); err != nil {
		return models.BookingAck{}, w.fail(err)
	}

	ack, err := w.collab.CreateBooking(ctx, req)
	if err != nil {
		return models.BookingAck{}, w.fail(err)
	}
	w.log.Info("wizard submit: booking accepted",
		slog.String("session_id", req.SessionID),
		slog.String("date", req.Date),
		slog.String("time", req.Time),
		slog.String("booking_id", ack.ID),
	)

	w.mu.Lock()
	w.ack = &ack
	w.mu.Unlock()
	w.setPayment(PaymentVerified)

	// The booking exists now; a cancelled context only shortens the pause.
	_ = sleep(ctx, w.pacing.Verified)

	w.mu.Lock()
	w.step = StepConfirmed
	w.mu.Unlock()
	return ack, nil
}

func (w *Wizard) fail(cause error) error {
	w.log.Warn("wizard submit: failed", slog.String("error", cause.Error()))
	w.mu.Lock()
	w.payment = PaymentIdle
	w.notice = noticeSubmissionFailed
	w.mu.Unlock()
	w.report(PaymentIdle)
	return fmt.Errorf("%w: %v", ErrSubmissionFailed, cause)
}

func (w *Wizard) setPayment(status PaymentStatus) {
	w.mu.Lock()
	w.payment = status
	w.mu.Unlock()
	w.report(status)
}

func (w *Wizard) report(status PaymentStatus) {
	if w.reporter != nil {
		w.reporter.Report(status)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

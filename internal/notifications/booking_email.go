package notifications

import (
	"bytes"
	"fmt"
	"html/template"

	"portal-booking/internal/models"
)

const bookingReceivedTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>We received your mentorship booking. Our team will verify your payment shortly.</p>
  <ul>
    <li>Session: {{.SessionTitle}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Amount: {{.Amount}}</li>
    <li>Transaction reference: {{.TransactionID}}</li>
    <li>Booking ID: {{.BookingID}}</li>
  </ul>
  {{if .Goal}}<p>Your goal for the session: {{.Goal}}</p>{{end}}
  <p>Thanks.</p>
</body>
</html>`

const bookingStatusTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  {{if eq .Status "verified"}}<p>Your payment has been verified and your session is confirmed.</p>{{else}}<p>We could not verify your payment, so the booking has been released. Reply to this email if you think this is a mistake.</p>{{end}}
  <ul>
    <li>Session: {{.SessionTitle}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Booking ID: {{.BookingID}}</li>
  </ul>
</body>
</html>`

var (
	bookingReceivedTmpl = template.Must(template.New("booking_received").Parse(bookingReceivedTemplate))
	bookingStatusTmpl   = template.Must(template.New("booking_status").Parse(bookingStatusTemplate))
)

type bookingEmailData struct {
	Name          string
	SessionTitle  string
	Date          string
	Time          string
	Amount        string
	TransactionID string
	BookingID     string
	Goal          string
	Status        string
}

func newBookingEmailData(booking models.Booking) bookingEmailData {
	return bookingEmailData{
		Name:          booking.Name,
		SessionTitle:  booking.SessionTitle,
		Date:          booking.Date,
		Time:          booking.Time,
		Amount:        formatRupees(booking.Amount),
		TransactionID: booking.TransactionID,
		BookingID:     booking.ID,
		Goal:          booking.Goal,
		Status:        booking.Status,
	}
}

func buildBookingReceivedHTML(booking models.Booking) (string, error) {
	var buf bytes.Buffer
	if err := bookingReceivedTmpl.Execute(&buf, newBookingEmailData(booking)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildBookingStatusHTML(booking models.Booking) (string, error) {
	var buf bytes.Buffer
	if err := bookingStatusTmpl.Execute(&buf, newBookingEmailData(booking)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatRupees renders an amount in paise.
func formatRupees(minor int64) string {
	return fmt.Sprintf("INR %d.%02d", minor/100, minor%100)
}

func statusLabel(status string) string {
	switch status {
	case models.BookingStatusVerified:
		return "confirmed"
	case models.BookingStatusRejected:
		return "not confirmed"
	default:
		return "pending"
	}
}

package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"portal-booking/internal/cache"
	"portal-booking/internal/catalog"
	"portal-booking/internal/db"
	"portal-booking/internal/models"
	"portal-booking/internal/schedule"
)

var (
	ErrUnknownSession       = errors.New("unknown session")
	ErrDateInPast           = errors.New("date in the past")
	ErrSlotTaken            = errors.New("slot already booked")
	ErrDuplicateTransaction = errors.New("transaction already used")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrNotFound             = errors.New("booking not found")
)

type Notifier interface {
	SendBookingReceived(ctx context.Context, booking models.Booking) (string, error)
	SendBookingStatusUpdate(ctx context.Context, booking models.Booking) (string, error)
}

type Service struct {
	repo     Repository
	catalog  *catalog.Catalog
	location *time.Location
	notifier Notifier
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewService(repo Repository, cat *catalog.Catalog, location *time.Location, notifier Notifier, c cache.Cache, cacheTTL time.Duration) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		location: location,
		notifier: notifier,
		cache:    c,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

const availabilityPrefix = "bookings:availability:"

func availabilityKey(date string) string {
	return availabilityPrefix + date
}

// InvalidateAvailability drops every cached availability entry. Writers that
// bypass the service, such as the seeder, call it after touching bookings.
func InvalidateAvailability(ctx context.Context, c cache.Cache) error {
	return c.DeletePrefix(ctx, availabilityPrefix)
}

// Availability returns the time labels held by pending or verified bookings on date.
func (s *Service) Availability(ctx context.Context, date string) ([]string, error) {
	key := availabilityKey(date)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var times []string
		if err := json.Unmarshal(raw, &times); err == nil {
			return times, nil
		}
	}

	times, err := s.repo.ActiveTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(times); err == nil {
		_ = s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return times, nil
}

func (s *Service) Book(ctx context.Context, req models.BookingRequest) (models.Booking, error) {
	offering, err := s.catalog.Get(req.SessionID)
	if err != nil {
		return models.Booking{}, ErrUnknownSession
	}

	now := s.now().In(s.location)
	past, err := schedule.IsDatePast(req.Date, s.location, now)
	if err != nil {
		return models.Booking{}, err
	}
	if past {
		return models.Booking{}, ErrDateInPast
	}

	label, err := schedule.CanonicalLabel(req.Time)
	if err != nil {
		return models.Booking{}, err
	}

	taken, err := s.repo.SlotTaken(ctx, req.Date, label)
	if err != nil {
		return models.Booking{}, err
	}
	if taken {
		return models.Booking{}, ErrSlotTaken
	}

	booking := models.Booking{
		ID:              uuid.NewString(),
		SessionID:       offering.ID,
		SessionTitle:    offering.Title,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Goal:            strings.TrimSpace(req.Goal),
		Date:            req.Date,
		Time:            label,
		TransactionID:   strings.TrimSpace(req.TransactionID),
		Amount:          req.Amount,
		Status:          models.BookingStatusPending,
		ClientTimestamp: req.Timestamp,
		SlotKey:         models.BookingSlotKey(req.Date, label),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), db.TransactionIndex) {
				return models.Booking{}, ErrDuplicateTransaction
			}
			return models.Booking{}, ErrSlotTaken
		}
		return models.Booking{}, err
	}
	_ = s.cache.Delete(ctx, availabilityKey(booking.Date))
	return booking, nil
}

func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Booking, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Date = strings.TrimSpace(filter.Date)

	switch filter.Status {
	case "", models.BookingStatusPending, models.BookingStatusVerified, models.BookingStatusRejected:
	default:
		return nil, 0, ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (models.Booking, error) {
	id = strings.TrimSpace(id)
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.BookingStatusVerified && status != models.BookingStatusRejected {
		return models.Booking{}, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now().In(s.location))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return models.Booking{}, ErrSlotTaken
		}
		return models.Booking{}, err
	}
	_ = s.cache.Delete(ctx, availabilityKey(updated.Date))
	return updated, nil
}

func (s *Service) NotifyBookingReceived(ctx context.Context, booking models.Booking) error {
	if s.notifier == nil || strings.TrimSpace(booking.Email) == "" {
		return nil
	}
	_, err := s.notifier.SendBookingReceived(ctx, booking)
	return err
}

func (s *Service) NotifyStatusUpdate(ctx context.Context, booking models.Booking) error {
	if s.notifier == nil || strings.TrimSpace(booking.Email) == "" {
		return nil
	}
	_, err := s.notifier.SendBookingStatusUpdate(ctx, booking)
	return err
}

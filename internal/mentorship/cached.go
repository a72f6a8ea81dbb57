package mentorship

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"portal-booking/internal/cache"
	"portal-booking/internal/models"
)

type Backend interface {
	BookedSlots(ctx context.Context, date string) ([]string, error)
	CreateBooking(ctx context.Context, booking models.BookingRequest) (models.BookingAck, error)
}

// CachedBackend keeps booked sets per date for a short TTL. Failed reads are
// never cached, and a created booking drops its date's entry.
type CachedBackend struct {
	next  Backend
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedBackend(next Backend, c cache.Cache, ttl time.Duration, log *slog.Logger) *CachedBackend {
	return &CachedBackend{next: next, cache: c, ttl: ttl, log: log}
}

type freshKey struct{}

// WithFreshRead makes availability reads issued with ctx skip cached entries.
// The fetched result still replaces the cached one.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

func freshRead(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshKey{}).(bool)
	return fresh
}

func availabilityKey(date string) string {
	return "availability:" + date
}

func (b *CachedBackend) BookedSlots(ctx context.Context, date string) ([]string, error) {
	key := availabilityKey(date)
	if !freshRead(ctx) {
		if cached, ok, err := b.cache.Get(ctx, key); err == nil && ok {
			var slots []string
			if err := json.Unmarshal(cached, &slots); err == nil {
				return slots, nil
			}
		} else if err != nil {
			b.log.Warn("mentorship availability: cache read failed", slog.String("error", err.Error()))
		}
	}

	slots, err := b.next.BookedSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(slots); err == nil && b.ttl > 0 {
		if err := b.cache.Set(ctx, key, payload, b.ttl); err != nil {
			b.log.Warn("mentorship availability: cache write failed", slog.String("error", err.Error()))
		}
	}
	return slots, nil
}

func (b *CachedBackend) CreateBooking(ctx context.Context, booking models.BookingRequest) (models.BookingAck, error) {
	ack, err := b.next.CreateBooking(ctx, booking)
	if cerr := b.cache.Delete(ctx, availabilityKey(booking.Date)); cerr != nil {
		b.log.Warn("mentorship booking: cache invalidation failed", slog.String("error", cerr.Error()))
	}
	return ack, err
}

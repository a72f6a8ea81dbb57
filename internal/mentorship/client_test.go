package mentorship

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"portal-booking/internal/cache"
	"portal-booking/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return NewClient(url, 2*time.Second, discardLogger(), WithRetry(3, time.Millisecond))
}

func TestBookedSlotsSendsDateAndToken(t *testing.T) {
	var gotDate, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mentorship/availability" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotDate = r.URL.Query().Get("date")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"bookedSlots":["10:00 AM","02:00 PM"]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/api/")
	ctx := WithBearerToken(context.Background(), "tok-1")
	slots, err := c.BookedSlots(ctx, "2026-02-05")
	if err != nil {
		t.Fatalf("BookedSlots error: %v", err)
	}
	if len(slots) != 2 || slots[1] != "02:00 PM" {
		t.Fatalf("unexpected slots: %v", slots)
	}
	if gotDate != "2026-02-05" {
		t.Fatalf("unexpected date: %s", gotDate)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestBookedSlotsAnonymousOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("expected no authorization header")
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	slots, err := newTestClient(srv.URL).BookedSlots(context.Background(), "2026-02-05")
	if err != nil {
		t.Fatalf("BookedSlots error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slots, got %v", slots)
	}
}

func TestBookedSlotsRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"bookedSlots":["11:00 AM"]}`))
	}))
	defer srv.Close()

	slots, err := newTestClient(srv.URL).BookedSlots(context.Background(), "2026-02-05")
	if err != nil {
		t.Fatalf("BookedSlots error: %v", err)
	}
	if len(slots) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("unexpected result: slots=%v calls=%d", slots, calls)
	}
}

func TestBookedSlotsDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid date"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).BookedSlots(context.Background(), "bad")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestBookedSlotsGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).BookedSlots(context.Background(), "2026-02-05"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCreateBookingPostsOnce(t *testing.T) {
	var calls int32
	var got models.BookingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/mentorship/book" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"bk-1","status":"pending_verification","extra":true}`))
	}))
	defer srv.Close()

	ack, err := newTestClient(srv.URL).CreateBooking(context.Background(), models.BookingRequest{
		Name: "Asha", Email: "asha@example.com", SessionID: "mock-interview",
		Date: "2026-02-05", Time: "02:00 PM", TransactionID: "UTR1", Amount: 99900,
		Status: models.BookingStatusPending,
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if ack.ID != "bk-1" || got.TransactionID != "UTR1" || got.Status != models.BookingStatusPending {
		t.Fatalf("unexpected ack=%+v body=%+v", ack, got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestCreateBookingDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateBooking(context.Background(), models.BookingRequest{Date: "2026-02-05"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

type countingBackend struct {
	reads  int
	slots  []string
	err    error
	booked int
}

func (b *countingBackend) BookedSlots(ctx context.Context, date string) ([]string, error) {
	b.reads++
	return b.slots, b.err
}

func (b *countingBackend) CreateBooking(ctx context.Context, req models.BookingRequest) (models.BookingAck, error) {
	b.booked++
	return models.BookingAck{ID: "x"}, nil
}

func TestCachedBackend(t *testing.T) {
	ctx := context.Background()
	next := &countingBackend{slots: []string{"10:00 AM"}}
	b := NewCachedBackend(next, cache.NewMemory(), time.Minute, discardLogger())

	for i := 0; i < 2; i++ {
		slots, err := b.BookedSlots(ctx, "2026-02-05")
		if err != nil || len(slots) != 1 {
			t.Fatalf("unexpected result: %v %v", slots, err)
		}
	}
	if next.reads != 1 {
		t.Fatalf("expected one upstream read, got %d", next.reads)
	}

	if _, err := b.CreateBooking(ctx, models.BookingRequest{Date: "2026-02-05"}); err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if _, err := b.BookedSlots(ctx, "2026-02-05"); err != nil {
		t.Fatalf("BookedSlots error: %v", err)
	}
	if next.reads != 2 {
		t.Fatalf("expected cache invalidated after booking, reads=%d", next.reads)
	}
}

func TestCachedBackendDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	next := &countingBackend{err: errors.New("down")}
	b := NewCachedBackend(next, cache.NewMemory(), time.Minute, discardLogger())

	if _, err := b.BookedSlots(ctx, "2026-02-05"); err == nil {
		t.Fatalf("expected error")
	}
	next.err = nil
	next.slots = []string{"11:00 AM"}
	slots, err := b.BookedSlots(ctx, "2026-02-05")
	if err != nil || len(slots) != 1 {
		t.Fatalf("expected fresh read after failure, got %v %v", slots, err)
	}
}

func TestCachedBackendFreshReadSeesUpstreamChange(t *testing.T) {
	ctx := context.Background()
	next := &countingBackend{slots: []string{}}
	b := NewCachedBackend(next, cache.NewMemory(), time.Minute, discardLogger())

	if _, err := b.BookedSlots(ctx, "2026-02-05"); err != nil {
		t.Fatalf("BookedSlots error: %v", err)
	}
	next.slots = []string{"11:00 AM"}

	cached, err := b.BookedSlots(ctx, "2026-02-05")
	if err != nil || len(cached) != 0 {
		t.Fatalf("expected cached empty set, got %v %v", cached, err)
	}

	fresh, err := b.BookedSlots(WithFreshRead(ctx), "2026-02-05")
	if err != nil || len(fresh) != 1 || fresh[0] != "11:00 AM" {
		t.Fatalf("expected upstream change on fresh read, got %v %v", fresh, err)
	}
	if next.reads != 2 {
		t.Fatalf("expected two upstream reads, got %d", next.reads)
	}

	again, err := b.BookedSlots(ctx, "2026-02-05")
	if err != nil || len(again) != 1 {
		t.Fatalf("expected fresh read to refill the cache, got %v %v", again, err)
	}
	if next.reads != 2 {
		t.Fatalf("expected cached read after refill, got %d reads", next.reads)
	}
}

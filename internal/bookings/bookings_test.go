package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"portal-booking/internal/auth"
	"portal-booking/internal/cache"
	"portal-booking/internal/catalog"
	"portal-booking/internal/db"
	"portal-booking/internal/models"
	"portal-booking/internal/validation"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type memoryRepo struct {
	mu          sync.Mutex
	items       map[string]models.Booking
	activeCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]models.Booking{}}
}

func duplicateKey(index string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.mentorship_bookings index: " + index,
	}}}
}

func (r *memoryRepo) Create(ctx context.Context, booking models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.TransactionID == booking.TransactionID {
			return duplicateKey(db.TransactionIndex)
		}
		if b.SlotKey != "" && b.SlotKey == booking.SlotKey {
			return duplicateKey(db.SlotIndex)
		}
	}
	r.items[booking.ID] = booking
	return nil
}

func (r *memoryRepo) ActiveTimes(ctx context.Context, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeCalls++
	times := []string{}
	for _, b := range r.items {
		if b.Date == date && models.IsActiveBookingStatus(b.Status) {
			times = append(times, b.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (r *memoryRepo) SlotTaken(ctx context.Context, date, time string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.BookingSlotKey(date, time)
	for _, b := range r.items {
		if b.SlotKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.items {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	items, _ := r.List(ctx, filter, 0, 0)
	return int64(len(items)), nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = status
	b.UpdatedAt = now
	if models.IsActiveBookingStatus(status) {
		b.SlotKey = models.BookingSlotKey(b.Date, b.Time)
	} else {
		b.SlotKey = ""
	}
	r.items[id] = b
	return b, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	received []string
}

func (n *fakeNotifier) SendBookingReceived(ctx context.Context, booking models.Booking) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, booking.ID)
	return "msg", nil
}

func (n *fakeNotifier) SendBookingStatusUpdate(ctx context.Context, booking models.Booking) (string, error) {
	return "msg", nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, catalog.Default(), ist, nil, cache.NewMemory(), time.Minute)
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 13, 45, 0, 0, ist) }
	return svc
}

func bookingRequest(date, label, txn string) models.BookingRequest {
	return models.BookingRequest{
		Name:          "Asha",
		Email:         "asha@example.com",
		SessionID:     "resume-review",
		Date:          date,
		Time:          label,
		TransactionID: txn,
		Amount:        49900,
		Timestamp:     "2025-06-10T08:15:00.000Z",
		Status:        models.BookingStatusPending,
	}
}

func TestBookStoresPendingBooking(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	booking, err := svc.Book(context.Background(), bookingRequest("2025-06-11", "2:00 pm", "UPI-1"))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if booking.Status != models.BookingStatusPending || booking.Time != "02:00 PM" || booking.SessionTitle != "Resume Review" {
		t.Fatalf("unexpected booking: %+v", booking)
	}
	times, err := svc.Availability(context.Background(), "2025-06-11")
	if err != nil || len(times) != 1 || times[0] != "02:00 PM" {
		t.Fatalf("unexpected availability: %v %v", times, err)
	}
}

func TestBookRejections(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	if _, err := svc.Book(ctx, bookingRequest("2025-06-11", "10:00 AM", "UPI-1")); err != nil {
		t.Fatalf("Book error: %v", err)
	}

	unknown := bookingRequest("2025-06-11", "11:00 AM", "UPI-2")
	unknown.SessionID = "nope"

	cases := []struct {
		name string
		req  models.BookingRequest
		want error
	}{
		{"unknown session", unknown, ErrUnknownSession},
		{"past date", bookingRequest("2025-06-09", "11:00 AM", "UPI-3"), ErrDateInPast},
		{"slot taken", bookingRequest("2025-06-11", "10:00 am", "UPI-4"), ErrSlotTaken},
		{"duplicate transaction", bookingRequest("2025-06-12", "10:00 AM", "UPI-1"), ErrDuplicateTransaction},
	}
	for _, tc := range cases {
		if _, err := svc.Book(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAvailabilityIsCachedAndInvalidated(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Availability(ctx, "2025-06-11"); err != nil {
			t.Fatalf("Availability error: %v", err)
		}
	}
	if repo.activeCalls != 1 {
		t.Fatalf("expected cached availability, got %d repo calls", repo.activeCalls)
	}

	booking, err := svc.Book(ctx, bookingRequest("2025-06-11", "03:00 PM", "UPI-9"))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	times, _ := svc.Availability(ctx, "2025-06-11")
	if len(times) != 1 {
		t.Fatalf("expected fresh availability after booking, got %v", times)
	}

	if _, err := svc.UpdateStatus(ctx, booking.ID, "rejected"); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	times, _ = svc.Availability(ctx, "2025-06-11")
	if len(times) != 0 {
		t.Fatalf("rejected booking should release the slot, got %v", times)
	}
	if _, err := svc.Book(ctx, bookingRequest("2025-06-11", "03:00 PM", "UPI-10")); err != nil {
		t.Fatalf("released slot should be bookable: %v", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	if _, err := svc.UpdateStatus(context.Background(), "x", "pending_verification"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "missing", "verified"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newTestRouter(svc *Service, login *LoginHandler) http.Handler {
	log := slog.New(slog.DiscardHandler)
	h := NewHandler(svc, validation.New(), log)
	r := chi.NewRouter()
	r.Get("/mentorship/availability", h.Availability)
	r.Post("/mentorship/book", h.Book)
	r.Get("/admin/bookings", h.AdminList)
	r.Patch("/admin/bookings/{id}/status", h.AdminUpdateStatus)
	if login != nil {
		r.Post("/admin/login", login.AdminLogin)
	}
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestBookHandler(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(newMemoryRepo())
	svc.notifier = notifier
	h := newTestRouter(svc, nil)

	rec := doJSON(t, h, http.MethodPost, "/mentorship/book", bookingRequest("2025-06-11", "11:00 AM", "UPI-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ack models.BookingAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil || ack.ID == "" || ack.Status != models.BookingStatusPending {
		t.Fatalf("unexpected ack %+v (%v)", ack, err)
	}

	rec = doJSON(t, h, http.MethodPost, "/mentorship/book", bookingRequest("2025-06-11", "11:00 AM", "UPI-2"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken slot, got %d", rec.Code)
	}

	bad := bookingRequest("2025-06-11", "11:30 AM", "UPI-3")
	bad.Status = "verified"
	rec = doJSON(t, h, http.MethodPost, "/mentorship/book", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid request, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/mentorship/availability?date=2025-06-11", nil)
	var avail models.AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &avail); err != nil || len(avail.BookedSlots) != 1 {
		t.Fatalf("unexpected availability %s (%v)", rec.Body.String(), err)
	}

	if rec := doJSON(t, h, http.MethodGet, "/mentorship/availability?date=tomorrow", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		notifier.mu.Lock()
		n := len(notifier.received)
		notifier.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one confirmation email, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAdminHandlers(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	h := newTestRouter(svc, nil)
	booking, err := svc.Book(context.Background(), bookingRequest("2025-06-11", "11:00 AM", "UPI-1"))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/admin/bookings?status=pending_verification&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodGet, "/admin/bookings?status=unknown", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status filter, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPatch, "/admin/bookings/"+booking.ID+"/status", map[string]string{"status": "verified"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodPatch, "/admin/bookings/"+booking.ID+"/status", map[string]string{"status": "cancelled"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPatch, "/admin/bookings/nope/status", map[string]string{"status": "rejected"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	hash, err := auth.HashPassword("letmein")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	manager := auth.NewManager("secret", time.Hour, "portal-booking")
	login := NewLoginHandler("admin", hash, manager, validation.New(), slog.New(slog.DiscardHandler))
	h := newTestRouter(newTestService(newMemoryRepo()), login)

	rec := doJSON(t, h, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "letmein"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := manager.Parse(out.AccessToken)
	if err != nil || claims.Role != models.UserRoleAdmin {
		t.Fatalf("expected admin token, got %+v (%v)", claims, err)
	}
	if out.TokenType != "Bearer" || out.ExpiresIn != 3600 {
		t.Fatalf("unexpected token response: %+v", out)
	}
}

func TestInvalidateAvailabilityDropsEveryDate(t *testing.T) {
	repo := newMemoryRepo()
	store := cache.NewMemory()
	svc := NewService(repo, catalog.Default(), ist, nil, store, time.Minute)
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 13, 45, 0, 0, ist) }
	ctx := context.Background()

	for _, date := range []string{"2025-06-11", "2025-06-12", "2025-06-11"} {
		if _, err := svc.Availability(ctx, date); err != nil {
			t.Fatalf("Availability error: %v", err)
		}
	}
	if repo.activeCalls != 2 {
		t.Fatalf("expected two repo calls before invalidation, got %d", repo.activeCalls)
	}

	if err := store.Set(ctx, "other:key", []byte("x"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := InvalidateAvailability(ctx, store); err != nil {
		t.Fatalf("InvalidateAvailability error: %v", err)
	}
	for _, date := range []string{"2025-06-11", "2025-06-12"} {
		if _, err := svc.Availability(ctx, date); err != nil {
			t.Fatalf("Availability error: %v", err)
		}
	}
	if repo.activeCalls != 4 {
		t.Fatalf("expected both dates reloaded, got %d repo calls", repo.activeCalls)
	}
	if _, ok, _ := store.Get(ctx, "other:key"); !ok {
		t.Fatalf("unrelated keys must survive invalidation")
	}
}

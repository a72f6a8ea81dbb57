package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"portal-booking/internal/auth"
	"portal-booking/internal/bookings"
	"portal-booking/internal/cache"
	"portal-booking/internal/catalog"
	"portal-booking/internal/config"
	"portal-booking/internal/db"
	"portal-booking/internal/models"
	"portal-booking/internal/schedule"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedBooking struct {
	DayOffset int
	Time      string
	SessionID string
	Name      string
	Email     string
	Status    string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	seeds := []seedBooking{
		{DayOffset: 1, Time: "10:00 AM", SessionID: "resume-review", Name: "Demo Candidate", Email: "demo1@example.com", Status: models.BookingStatusVerified},
		{DayOffset: 1, Time: "02:00 PM", SessionID: "mock-interview", Name: "Demo Candidate", Email: "demo2@example.com", Status: models.BookingStatusPending},
		{DayOffset: 2, Time: "11:00 AM", SessionID: "career-guidance", Name: "Demo Candidate", Email: "demo3@example.com", Status: models.BookingStatusPending},
		{DayOffset: 2, Time: "05:00 PM", SessionID: "resume-review", Name: "Demo Candidate", Email: "demo4@example.com", Status: models.BookingStatusRejected},
	}

	cat := catalog.Default()
	today := schedule.StartOfDay(time.Now(), cfg.Timezone)
	for i, b := range seeds {
		offering, err := cat.Get(b.SessionID)
		if err != nil {
			log.Fatalf("seed booking %d: %v", i, err)
		}
		date := schedule.DateKey(today.AddDate(0, 0, b.DayOffset), cfg.Timezone)
		now := time.Now().In(cfg.Timezone)
		txn := fmt.Sprintf("SEED-%s-%d", date, i)

		set := bson.M{
			"status":    b.Status,
			"updatedAt": now,
		}
		update := bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"_id":             uuid.NewString(),
				"sessionId":       offering.ID,
				"sessionTitle":    offering.Title,
				"name":            b.Name,
				"email":           b.Email,
				"date":            date,
				"time":            b.Time,
				"amount":          offering.PriceMinorUnits,
				"clientTimestamp": now.UTC().Format(time.RFC3339),
				"createdAt":       now,
			},
		}
		if models.IsActiveBookingStatus(b.Status) {
			set["slotKey"] = models.BookingSlotKey(date, b.Time)
		} else {
			update["$unset"] = bson.M{"slotKey": ""}
		}

		_, err = cols.Bookings.UpdateOne(ctx, bson.M{"transactionId": txn}, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Fatalf("seed error for %s %s: %v", date, b.Time, err)
		}
	}

	cacheStore, err := cache.Open(ctx, cfg.RedisURL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("seed cache: %v", err)
	}
	if err := bookings.InvalidateAvailability(ctx, cacheStore); err != nil {
		log.Fatalf("seed cache invalidation: %v", err)
	}
	if closer, ok := cacheStore.(*cache.RedisCache); ok {
		_ = closer.Close()
	}

	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatalf("hash admin password: %v", err)
		}
		fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
	} else {
		log.Println("seed admin: ADMIN_PASSWORD missing, no hash printed")
	}

	log.Println("seed completed")
}

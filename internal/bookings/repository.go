package bookings

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portal-booking/internal/models"
)

type Repository interface {
	Create(ctx context.Context, booking models.Booking) error
	ActiveTimes(ctx context.Context, date string) ([]string, error)
	SlotTaken(ctx context.Context, date, time string) (bool, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Booking, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	UpdateStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, booking models.Booking) error {
	_, err := r.col.InsertOne(ctx, booking)
	return err
}

func (r *MongoRepository) ActiveTimes(ctx context.Context, date string) ([]string, error) {
	query := bson.M{
		"date":   date,
		"status": bson.M{"$in": models.ActiveBookingStatuses},
	}
	opts := options.Find().
		SetProjection(bson.M{"time": 1}).
		SetSort(bson.D{{Key: "time", Value: 1}})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	times := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Time string `bson:"time"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		times = append(times, doc.Time)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func (r *MongoRepository) SlotTaken(ctx context.Context, date, time string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"slotKey": models.BookingSlotKey(date, time)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, r.filterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Booking, 0)
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, err
		}
		items = append(items, booking)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, r.filterToBSON(filter))
}

// UpdateStatus sets the status and claims or releases the slot key to match it.
func (r *MongoRepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error) {
	var current models.Booking
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&current); err != nil {
		return models.Booking{}, err
	}

	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": now,
		},
	}
	if models.IsActiveBookingStatus(status) {
		update["$set"].(bson.M)["slotKey"] = models.BookingSlotKey(current.Date, current.Time)
	} else {
		update["$unset"] = bson.M{"slotKey": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Booking
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return models.Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) filterToBSON(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	return query
}

package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TransactionIndex = "transaction_unique"
	SlotIndex        = "slot_active_unique"
)

type Collections struct {
	Bookings *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Bookings: db.Collection("mentorship_bookings"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Bookings.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(TransactionIndex),
		},
		{
			// Only bookings holding a slot carry slotKey.
			Keys: bson.D{{Key: "slotKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(SlotIndex).
				SetPartialFilterExpression(bson.M{"slotKey": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	return err
}

package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ceebrain-identity/internal/domain"
)

// MongoOTPRepository guarda OTPs con _id = numero movil; el indice TTL
// sobre expiry_time los elimina pasivamente.
type MongoOTPRepository struct {
	col *mongo.Collection
}

func NewMongoOTPRepository(db *mongo.Database) *MongoOTPRepository {
	return &MongoOTPRepository{col: db.Collection(ColOTPs)}
}

func (r *MongoOTPRepository) Upsert(ctx context.Context, record domain.OTPRecord) error {
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "code_hash", Value: record.CodeHash},
			{Key: "expiry_time", Value: record.ExpiryTime},
			{Key: "wrong_attempts", Value: 0},
			{Key: "updated_at", Value: record.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: record.UpdatedAt}}},
	}
	_, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: record.MobileNumber}}, update, options.UpdateOne().SetUpsert(true))
	return wrapMongoError(err)
}

func (r *MongoOTPRepository) GetByMobile(ctx context.Context, mobile string) (domain.OTPRecord, error) {
	return findOne[domain.OTPRecord](ctx, r.col, bson.D{{Key: "_id", Value: mobile}})
}

func (r *MongoOTPRepository) IncrementWrongAttempts(ctx context.Context, mobile string) (int, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "wrong_attempts", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec domain.OTPRecord
	if err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: mobile}}, update, opts).Decode(&rec); err != nil {
		return 0, wrapMongoError(err)
	}
	return rec.WrongAttempts, nil
}

func (r *MongoOTPRepository) Delete(ctx context.Context, mobile string) error {
	_, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: mobile}})
	return wrapMongoError(err)
}

func (r *MongoOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{{Key: "expiry_time", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return 0, wrapMongoError(err)
	}
	return res.DeletedCount, nil
}

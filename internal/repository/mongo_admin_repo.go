package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"ceebrain-identity/internal/domain"
)

// MongoAdminRepository implementa AdminRepository sobre la coleccion admins.
type MongoAdminRepository struct {
	col *mongo.Collection
}

func NewMongoAdminRepository(db *mongo.Database) *MongoAdminRepository {
	return &MongoAdminRepository{col: db.Collection(ColAdmins)}
}

func (r *MongoAdminRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.D{})
}

func (r *MongoAdminRepository) Create(ctx context.Context, admin domain.Admin) error {
	return insertOne(ctx, r.col, admin)
}

func (r *MongoAdminRepository) GetByID(ctx context.Context, id string) (domain.Admin, error) {
	return findOne[domain.Admin](ctx, r.col, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoAdminRepository) GetByEmail(ctx context.Context, email string) (domain.Admin, error) {
	return findOne[domain.Admin](ctx, r.col, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (r *MongoAdminRepository) SetResetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	return updateByID(ctx, r.col, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "reset_otp_hash", Value: otpHash},
		{Key: "reset_otp_expiry", Value: expiresAt},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
}

func (r *MongoAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updateByID(ctx, r.col, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "updated_at", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "reset_otp_hash", Value: ""},
			{Key: "reset_otp_expiry", Value: ""},
		}},
	})
}

package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ceebrain-identity/internal/domain"
)

// MongoUserRepository implementa UserRepository sobre la coleccion users.
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(ColUsers)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.User) error {
	return insertOne(ctx, r.col, user)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (r *MongoUserRepository) GetByMobile(ctx context.Context, mobile string) (domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "mobile_number", Value: mobile}})
}

func (r *MongoUserRepository) ExistsByCeebrainID(ctx context.Context, ceebrainID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "ceebrain_id", Value: ceebrainID}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoUserRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error) {
	query := bson.D{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		or := bson.A{}
		for _, field := range []string{"full_name", "email", "mobile_number", "ceebrain_id", "address.city", "address.state"} {
			or = append(or, bson.D{{Key: field, Value: re}})
		}
		query = append(query, bson.E{Key: "$or", Value: or})
	}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.VerificationStatus != "" {
		query = append(query, bson.E{Key: "verification_status", Value: filter.VerificationStatus})
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	order := 1
	if filter.SortDesc {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortColumn(filter.SortBy), Value: order}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	users, err := findMany[domain.User](ctx, r.col, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	set := bson.D{
		{Key: "full_name", Value: user.FullName},
		{Key: "date_of_birth", Value: user.DateOfBirth},
		{Key: "gender", Value: user.Gender},
		{Key: "identity_type", Value: user.IdentityType},
		{Key: "profile_image", Value: user.ProfileImage},
		{Key: "address", Value: user.Address},
		{Key: "below_poverty_line", Value: user.BelowPovertyLine},
		{Key: "underprivileged_category", Value: user.Underprivileged},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated domain.User
	err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: user.ID}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&updated)
	if err != nil {
		return domain.User{}, wrapMongoError(err)
	}
	return updated, nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updateByID(ctx, r.col, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
}

func (r *MongoUserRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	return updateByID(ctx, r.col, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
}

func (r *MongoUserRepository) UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, verifier *domain.Verifier) error {
	return updateByID(ctx, r.col, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "verification_status", Value: status},
		{Key: "verified_by", Value: verifier},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
}

func (r *MongoUserRepository) IncrementLoginAttempts(ctx context.Context, id string, lockUntil *time.Time) error {
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "login_attempts", Value: 1}}}}
	if lockUntil != nil {
		update = append(update, bson.E{Key: "$set", Value: bson.D{{Key: "lock_until", Value: *lockUntil}}})
	}
	return updateByID(ctx, r.col, id, update)
}

func (r *MongoUserRepository) RestartLoginAttempts(ctx context.Context, id string) error {
	return updateByID(ctx, r.col, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "login_attempts", Value: 1}}},
		{Key: "$unset", Value: bson.D{{Key: "lock_until", Value: ""}}},
	})
}

func (r *MongoUserRepository) ResetLoginAttempts(ctx context.Context, id string, lastLoginAt time.Time) error {
	return updateByID(ctx, r.col, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "login_attempts", Value: 0},
			{Key: "last_login_at", Value: lastLoginAt},
		}},
		{Key: "$unset", Value: bson.D{{Key: "lock_until", Value: ""}}},
	})
}

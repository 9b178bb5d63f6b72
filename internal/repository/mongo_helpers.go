package repository

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Nombres de colecciones del almacen de documentos.
const (
	ColUsers  = "users"
	ColAdmins = "admins"
	ColOTPs   = "otps"
)

var duplicateIndexPattern = regexp.MustCompile(`index: ([A-Za-z0-9_.]+?)_1\b`)

// wrapMongoError convierte errores del driver en errores del repositorio.
func wrapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		field := ""
		if m := duplicateIndexPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
			field = apiField(m[1])
		}
		return &DuplicateError{Field: field}
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (T, error) {
	var result T
	if err := col.FindOne(ctx, filter, opts...).Decode(&result); err != nil {
		var zero T
		return zero, wrapMongoError(err)
	}
	return result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapMongoError(err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapMongoError(err)
}

// updateByID aplica update sobre _id y devuelve ErrNotFound si no hubo match.
func updateByID(ctx context.Context, col *mongo.Collection, id string, update bson.D) error {
	res, err := col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return wrapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureMongoIndexes crea indices unicos y el indice TTL de OTP.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		col     string
		keys    bson.D
		options *options.IndexOptionsBuilder
	}

	indexes := []idx{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, options.Index().SetUnique(true).SetSparse(true)},
		{ColUsers, bson.D{{Key: "mobile_number", Value: 1}}, options.Index().SetUnique(true).SetSparse(true)},
		{ColUsers, bson.D{{Key: "ceebrain_id", Value: 1}}, options.Index().SetUnique(true)},
		{ColUsers, bson.D{{Key: "address.postal_code", Value: 1}}, nil},
		{ColUsers, bson.D{{Key: "verification_status", Value: 1}}, nil},
		{ColUsers, bson.D{{Key: "status", Value: 1}}, nil},
		{ColUsers, bson.D{{Key: "created_at", Value: -1}}, nil},

		{ColAdmins, bson.D{{Key: "email", Value: 1}}, options.Index().SetUnique(true)},
		{ColAdmins, bson.D{{Key: "number", Value: 1}}, options.Index().SetUnique(true)},

		// Limpieza pasiva de OTP vencidos.
		{ColOTPs, bson.D{{Key: "expiry_time", Value: 1}}, options.Index().SetExpireAfterSeconds(0)},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys, Options: i.options}
		if _, err := db.Collection(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

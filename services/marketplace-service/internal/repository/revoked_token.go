package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// RevokedTokenRepository is the deny-list of session tokens ended before expiry.
type RevokedTokenRepository interface {
	// Revoke denies jti until expiresAt. It reports false when jti was already
	// revoked, so exactly one caller wins a race on the same token.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedTokenCollection = "revoked_tokens"

type revokedTokenMongoRepository struct {
	db *mongo.Database
}

func NewRevokedTokenMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) RevokedTokenRepository {
	collection := db.Collection(revokedTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create revoked token indexes")
	}

	return &revokedTokenMongoRepository{db: db}
}

func (r *revokedTokenMongoRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	_, err := r.db.Collection(revokedTokenCollection).InsertOne(ctx, model.RevokedToken{
		JTI:       jti,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *revokedTokenMongoRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.db.Collection(revokedTokenCollection).FindOne(ctx, bson.M{"jti": jti}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

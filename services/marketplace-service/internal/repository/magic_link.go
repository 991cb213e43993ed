package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// MagicLinkRepository stores single-use sign-in links.
type MagicLinkRepository interface {
	// ReplaceForEmail invalidates earlier links for the email and stores link.
	ReplaceForEmail(ctx context.Context, link *model.MagicLink) (*model.MagicLink, error)
	GetByJTI(ctx context.Context, jti string) (*model.MagicLink, error)
	// MarkUsed consumes the link. It reports false when it was already used.
	MarkUsed(ctx context.Context, jti string) (bool, error)
}

const magicLinkCollection = "magic_links"

type magicLinkMongoRepository struct {
	db *mongo.Database
}

func NewMagicLinkMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) MagicLinkRepository {
	collection := db.Collection(magicLinkCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create magic link indexes")
	}

	return &magicLinkMongoRepository{db: db}
}

func (r *magicLinkMongoRepository) ReplaceForEmail(ctx context.Context, link *model.MagicLink) (*model.MagicLink, error) {
	collection := r.db.Collection(magicLinkCollection)
	now := time.Now()

	_, err := collection.UpdateMany(
		ctx,
		bson.M{"email": link.Email, "used": false},
		bson.M{"$set": bson.M{"used": true, "updated_at": now}},
	)
	if err != nil {
		return nil, err
	}

	link.CreatedAt = now
	link.UpdatedAt = now
	link.Used = false

	result, err := collection.InsertOne(ctx, link)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		link.ID = objectID
	}

	return link, nil
}

func (r *magicLinkMongoRepository) GetByJTI(ctx context.Context, jti string) (*model.MagicLink, error) {
	var link model.MagicLink
	err := r.db.Collection(magicLinkCollection).FindOne(ctx, bson.M{"jti": jti}).Decode(&link)
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *magicLinkMongoRepository) MarkUsed(ctx context.Context, jti string) (bool, error) {
	result, err := r.db.Collection(magicLinkCollection).UpdateOne(
		ctx,
		bson.M{"jti": jti, "used": false},
		bson.M{"$set": bson.M{"used": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount == 1, nil
}

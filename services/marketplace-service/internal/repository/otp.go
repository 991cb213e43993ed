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

// OTPRepository defines the interface for one-time code operations.
type OTPRepository interface {
	// ReplaceForEmail deletes any previous code for the email and stores otp.
	ReplaceForEmail(ctx context.Context, otp *model.OTP) (*model.OTP, error)

	// GetLatestUnverified returns the newest unverified code for email.
	GetLatestUnverified(ctx context.Context, email string) (*model.OTP, error)

	// IncrementAttempts atomically bumps the failed-attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id bson.ObjectID) (int, error)

	// MarkVerified flips verified from false to true. It reports false when another
	// request already consumed the code.
	MarkVerified(ctx context.Context, id bson.ObjectID) (bool, error)

	// Delete removes a code.
	Delete(ctx context.Context, id bson.ObjectID) error
}

const otpCollection = "otps"

type otpMongoRepository struct {
	db *mongo.Database
}

// NewOTPMongoRepository creates a new MongoDB repository for one-time codes.
func NewOTPMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) OTPRepository {
	collection := db.Collection(otpCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create otp indexes")
	}

	return &otpMongoRepository{db: db}
}

func (r *otpMongoRepository) ReplaceForEmail(ctx context.Context, otp *model.OTP) (*model.OTP, error) {
	collection := r.db.Collection(otpCollection)

	if _, err := collection.DeleteMany(ctx, bson.M{"email": otp.Email}); err != nil {
		return nil, err
	}

	now := time.Now()
	otp.CreatedAt = now
	otp.UpdatedAt = now
	otp.Attempts = 0
	otp.Verified = false

	result, err := collection.InsertOne(ctx, otp)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		otp.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return otp, nil
}

func (r *otpMongoRepository) GetLatestUnverified(ctx context.Context, email string) (*model.OTP, error) {
	var otp model.OTP
	err := r.db.Collection(otpCollection).FindOne(
		ctx,
		bson.M{"email": email, "verified": false},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&otp)
	if err != nil {
		return nil, err
	}

	return &otp, nil
}

func (r *otpMongoRepository) IncrementAttempts(ctx context.Context, id bson.ObjectID) (int, error) {
	var otp model.OTP
	err := r.db.Collection(otpCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&otp)
	if err != nil {
		return 0, err
	}

	return otp.Attempts, nil
}

func (r *otpMongoRepository) MarkVerified(ctx context.Context, id bson.ObjectID) (bool, error) {
	result, err := r.db.Collection(otpCollection).UpdateOne(
		ctx,
		bson.M{"_id": id, "verified": false},
		bson.M{"$set": bson.M{"verified": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount == 1, nil
}

func (r *otpMongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	_, err := r.db.Collection(otpCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

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

// RateWindow is the state of one email's send window after a request was counted.
type RateWindow struct {
	Allowed bool
	Count   int
	ResetAt time.Time
}

// OTPRequestRepository counts sign-in emails per address inside a fixed window.
type OTPRequestRepository interface {
	// Hit counts one request for email. Once limit requests were counted in the
	// current window the request is refused and Allowed is false.
	Hit(ctx context.Context, email string, limit int, window time.Duration, now time.Time) (*RateWindow, error)
}

const otpRequestCollection = "otp_requests"

type otpRequestMongoRepository struct {
	db *mongo.Database
}

func NewOTPRequestMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) OTPRequestRepository {
	collection := db.Collection(otpRequestCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create otp request indexes")
	}

	return &otpRequestMongoRepository{db: db}
}

// Hit never reads before it writes. A fresh window under the limit is incremented
// in place; a stale or missing window is replaced by an upsert; the unique email
// index turns an upsert against a fresh, exhausted window into a duplicate key
// error, which is the refusal.
func (r *otpRequestMongoRepository) Hit(
	ctx context.Context,
	email string,
	limit int,
	window time.Duration,
	now time.Time,
) (*RateWindow, error) {
	collection := r.db.Collection(otpRequestCollection)
	cutoff := now.Add(-window)

	for attempt := 0; attempt < 2; attempt++ {
		var current model.OTPRequestWindow
		err := collection.FindOneAndUpdate(
			ctx,
			bson.M{
				"email":             email,
				"window_started_at": bson.M{"$gt": cutoff},
				"count":             bson.M{"$lt": limit},
			},
			bson.M{"$inc": bson.M{"count": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&current)
		if err == nil {
			return &RateWindow{
				Allowed: true,
				Count:   current.Count,
				ResetAt: current.WindowStartedAt.Add(window),
			}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		_, err = collection.UpdateOne(
			ctx,
			bson.M{
				"email":             email,
				"window_started_at": bson.M{"$lte": cutoff},
			},
			bson.M{"$set": bson.M{
				"count":             1,
				"window_started_at": now,
				"expires_at":        now.Add(window),
			}},
			options.UpdateOne().SetUpsert(true),
		)
		if err == nil {
			return &RateWindow{Allowed: true, Count: 1, ResetAt: now.Add(window)}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		// The window is fresh: either exhausted, or a concurrent first request
		// created it between our two writes. Retry the increment once.
	}

	var current model.OTPRequestWindow
	if err := collection.FindOne(ctx, bson.M{"email": email}).Decode(&current); err != nil {
		return nil, err
	}

	return &RateWindow{
		Allowed: false,
		Count:   current.Count,
		ResetAt: current.WindowStartedAt.Add(window),
	}, nil
}

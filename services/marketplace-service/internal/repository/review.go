package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// ErrAlreadyFlagged is returned when a user flags the same review twice.
var ErrAlreadyFlagged = errors.New("review already flagged by this user")

// ReviewRepository defines the interface for review persistence and aggregation.
type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) (*model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	// ListByReviewedUser returns the active reviews userID received, newest first.
	ListByReviewedUser(ctx context.Context, userID bson.ObjectID, limit, offset int64) ([]*model.Review, error)
	AddHelpfulVote(ctx context.Context, id, userID bson.ObjectID) (*model.Review, error)
	// AddFlag records one flag per user and switches the review to Flagged once
	// model.FlagThreshold flags exist, in a single write.
	AddFlag(ctx context.Context, id bson.ObjectID, flag model.ReviewFlag) (*model.Review, error)
	RatingSummary(ctx context.Context, userID bson.ObjectID) (*model.RatingSummary, error)
}

const reviewCollection = "reviews"

type reviewMongoRepository struct {
	db *mongo.Database
}

func NewReviewMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) ReviewRepository {
	collection := db.Collection(reviewCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "task_id", Value: 1},
				{Key: "reviewer_id", Value: 1},
				{Key: "review_type", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "reviewed_user_id", Value: 1}, {Key: "status", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create review indexes")
	}

	return &reviewMongoRepository{db: db}
}

func (r *reviewMongoRepository) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	if review.HelpfulVotes == nil {
		review.HelpfulVotes = []bson.ObjectID{}
	}
	if review.Flags == nil {
		review.Flags = []model.ReviewFlag{}
	}

	result, err := r.db.Collection(reviewCollection).InsertOne(ctx, review)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		review.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return review, nil
}

func (r *reviewMongoRepository) GetReview(ctx context.Context, id string) (*model.Review, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var review model.Review
	if err := r.db.Collection(reviewCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&review); err != nil {
		return nil, err
	}

	return &review, nil
}

func (r *reviewMongoRepository) ListByReviewedUser(
	ctx context.Context,
	userID bson.ObjectID,
	limit, offset int64,
) ([]*model.Review, error) {
	limit, offset = NormalizePage(limit, offset)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.db.Collection(reviewCollection).Find(
		ctx,
		bson.M{"reviewed_user_id": userID, "status": model.ReviewStatusActive},
		findOptions,
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []*model.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *reviewMongoRepository) AddHelpfulVote(ctx context.Context, id, userID bson.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.db.Collection(reviewCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"helpful_votes": userID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&review)
	if err != nil {
		return nil, err
	}

	return &review, nil
}

func (r *reviewMongoRepository) AddFlag(ctx context.Context, id bson.ObjectID, flag model.ReviewFlag) (*model.Review, error) {
	collection := r.db.Collection(reviewCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"flags": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$flags", bson.A{}}},
				bson.A{bson.M{"$literal": flag}},
			}},
			"updated_at": time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$gte": bson.A{bson.M{"$size": "$flags"}, model.FlagThreshold}},
					bson.M{"$eq": bson.A{"$status", model.ReviewStatusActive}},
				}},
				model.ReviewStatusFlagged,
				"$status",
			}},
		}}},
	}

	var review model.Review
	err := collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "flags.user_id": bson.M{"$ne": flag.UserID}},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&review)
	if err == nil {
		return &review, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Either the review does not exist or this user already flagged it.
	count, err := collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, mongo.ErrNoDocuments
	}

	return nil, ErrAlreadyFlagged
}

type ratingAggregate struct {
	Average         float64  `bson:"average"`
	Count           int      `bson:"count"`
	One             int      `bson:"one"`
	Two             int      `bson:"two"`
	Three           int      `bson:"three"`
	Four            int      `bson:"four"`
	Five            int      `bson:"five"`
	Quality         *float64 `bson:"quality"`
	Communication   *float64 `bson:"communication"`
	Timeliness      *float64 `bson:"timeliness"`
	Professionalism *float64 `bson:"professionalism"`
}

func ratingBucket(rating int) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$rating", rating}}, 1, 0}}}
}

func (r *reviewMongoRepository) RatingSummary(ctx context.Context, userID bson.ObjectID) (*model.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"reviewed_user_id": userID,
			"status":           model.ReviewStatusActive,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"average":         bson.M{"$avg": "$rating"},
			"count":           bson.M{"$sum": 1},
			"one":             ratingBucket(1),
			"two":             ratingBucket(2),
			"three":           ratingBucket(3),
			"four":            ratingBucket(4),
			"five":            ratingBucket(5),
			"quality":         bson.M{"$avg": "$criteria.quality"},
			"communication":   bson.M{"$avg": "$criteria.communication"},
			"timeliness":      bson.M{"$avg": "$criteria.timeliness"},
			"professionalism": bson.M{"$avg": "$criteria.professionalism"},
		}}},
	}

	cursor, err := r.db.Collection(reviewCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []ratingAggregate
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return EmptyRatingSummary(), nil
	}

	row := rows[0]
	summary := EmptyRatingSummary()
	summary.Average = RoundRating(row.Average)
	summary.Count = row.Count
	summary.Distribution[1] = row.One
	summary.Distribution[2] = row.Two
	summary.Distribution[3] = row.Three
	summary.Distribution[4] = row.Four
	summary.Distribution[5] = row.Five

	for name, avg := range map[string]*float64{
		"quality":         row.Quality,
		"communication":   row.Communication,
		"timeliness":      row.Timeliness,
		"professionalism": row.Professionalism,
	} {
		if avg != nil {
			summary.Criteria[name] = RoundRating(*avg)
		}
	}

	return summary, nil
}

// EmptyRatingSummary is the summary of a user with no active reviews.
func EmptyRatingSummary() *model.RatingSummary {
	return &model.RatingSummary{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Criteria:     map[string]float64{},
	}
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// UpsertOnLogin creates the user on first sign-in and refreshes login metadata afterwards.
	UpsertOnLogin(ctx context.Context, params LoginParams) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*model.User, error)
	// IncrementStats applies counter deltas; karma is clamped to [0, 100].
	IncrementStats(ctx context.Context, id string, delta StatsDelta) (*model.User, error)
	SetKarma(ctx context.Context, id string, karma int) error
	ListByKarma(ctx context.Context, limit int64) ([]*model.User, error)
}

// LoginParams carries what a successful sign-in knows about the user.
type LoginParams struct {
	Email       string
	Institution string
	Domain      string
	Now         time.Time
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	Skills    *[]model.Skill
}

// StatsDelta holds counter increments applied atomically.
type StatsDelta struct {
	CompletedTasks int
	PostedTasks    int
	Karma          int
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "karma_score", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) UpsertOnLogin(ctx context.Context, params LoginParams) (*model.User, error) {
	email := strings.ToLower(params.Email)

	update := bson.M{
		"$setOnInsert": bson.M{
			"email":           email,
			"name":            DisplayNameFromEmail(email),
			"bio":             "",
			"avatar_url":      "",
			"karma_score":     model.DefaultKarmaScore,
			"skills":          []model.Skill{},
			"completed_tasks": 0,
			"posted_tasks":    0,
			"verified_at":     params.Now,
			"created_at":      params.Now,
		},
		"$set": bson.M{
			"institution":   params.Institution,
			"domain":        params.Domain,
			"last_login_at": params.Now,
			"updated_at":    params.Now,
		},
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"email": strings.ToLower(email)})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	updateMap := bson.M{}
	if params.Name != nil {
		updateMap["name"] = *params.Name
	}
	if params.Bio != nil {
		updateMap["bio"] = *params.Bio
	}
	if params.AvatarURL != nil {
		updateMap["avatar_url"] = *params.AvatarURL
	}
	if params.Skills != nil {
		updateMap["skills"] = *params.Skills
	}

	if len(updateMap) == 0 {
		return nil, errors.New("no user fields to update")
	}

	updateMap["updated_at"] = time.Now()

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) IncrementStats(ctx context.Context, id string, delta StatsDelta) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	// Pipeline update so the karma clamp happens in the same write as the increment.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"completed_tasks": bson.M{"$add": bson.A{"$completed_tasks", delta.CompletedTasks}},
			"posted_tasks":    bson.M{"$add": bson.A{"$posted_tasks", delta.PostedTasks}},
			"karma_score": bson.M{"$min": bson.A{100, bson.M{"$max": bson.A{0,
				bson.M{"$add": bson.A{"$karma_score", delta.Karma}},
			}}}},
			"updated_at": time.Now(),
		}}},
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) SetKarma(ctx context.Context, id string, karma int) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"karma_score": model.ClampKarma(karma), "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *userMongoRepository) ListByKarma(ctx context.Context, limit int64) ([]*model.User, error) {
	if limit <= 0 {
		limit = 10
	}

	findOptions := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "karma_score", Value: -1}, {Key: "completed_tasks", Value: -1}})

	cursor, err := r.db.Collection(userCollection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*model.User
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// DisplayNameFromEmail derives a readable default name from the local part of email.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

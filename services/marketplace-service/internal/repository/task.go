package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// ErrVersionConflict is returned when a task changed between load and save.
var ErrVersionConflict = errors.New("task was modified concurrently")

// TaskRepository defines the interface for task persistence.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// UpdateTask replaces the stored task if its version still matches task.Version.
	// On success task.Version is advanced.
	UpdateTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*model.Task, error)
}

// TaskFilter narrows ListTasks. Zero values are ignored.
type TaskFilter struct {
	Status     model.TaskStatus
	Category   string
	Skill      string
	PostedBy   *bson.ObjectID
	AssignedTo *bson.ObjectID
	Limit      int64
	Offset     int64
}

const (
	taskCollection = "tasks"

	defaultTaskPageSize = 20
	maxTaskPageSize     = 100
)

type taskMongoRepository struct {
	db *mongo.Database
}

func NewTaskMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) TaskRepository {
	collection := db.Collection(taskCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "posted_by", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "assigned_to", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "skills_required", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create task indexes")
	}

	return &taskMongoRepository{db: db}
}

func (r *taskMongoRepository) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	task.Version = 1

	result, err := r.db.Collection(taskCollection).InsertOne(ctx, task)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		task.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return task, nil
}

func (r *taskMongoRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var task model.Task
	if err := r.db.Collection(taskCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *taskMongoRepository) UpdateTask(ctx context.Context, task *model.Task) error {
	expected := task.Version
	task.Version = expected + 1

	result, err := r.db.Collection(taskCollection).ReplaceOne(
		ctx,
		bson.M{"_id": task.ID, "version": expected},
		task,
	)
	if err != nil {
		task.Version = expected
		return err
	}

	if result.MatchedCount == 0 {
		task.Version = expected
		return ErrVersionConflict
	}

	return nil
}

func (r *taskMongoRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]*model.Task, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Skill != "" {
		query["skills_required"] = filter.Skill
	}
	if filter.PostedBy != nil {
		query["posted_by"] = *filter.PostedBy
	}
	if filter.AssignedTo != nil {
		query["assigned_to"] = *filter.AssignedTo
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.db.Collection(taskCollection).Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// NormalizePage clamps a requested page to sane bounds.
func NormalizePage(limit, offset int64) (int64, int64) {
	if limit <= 0 {
		limit = defaultTaskPageSize
	}
	if limit > maxTaskPageSize {
		limit = maxTaskPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}


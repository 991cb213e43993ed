package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

// TaskUsecase defines the task and bid lifecycle.
type TaskUsecase interface {
	CreateTask(ctx context.Context, posterID string, params CreateTaskParams) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, params ListTasksParams) ([]*model.Task, error)

	AddBid(ctx context.Context, taskID, bidderID string, params BidParams) (*model.Task, error)
	WithdrawBid(ctx context.Context, taskID, bidID, bidderID string) (*model.Task, error)
	AcceptBid(ctx context.Context, taskID, bidID, posterID string) (*model.Task, error)

	StartWork(ctx context.Context, taskID, assigneeID string) (*model.Task, error)
	SubmitWork(ctx context.Context, taskID, assigneeID string, params SubmitWorkParams) (*model.Task, error)
	CompleteTask(ctx context.Context, taskID, posterID string, params CompleteTaskParams) (*model.Task, error)
	CancelTask(ctx context.Context, taskID, posterID string) (*model.Task, error)
	RaiseDispute(ctx context.Context, taskID, userID, reason string) (*model.Task, error)
}

type CreateTaskParams struct {
	Title          string
	Description    string
	Category       string
	SkillsRequired []string
	Budget         model.Budget
	Deadline       time.Time
}

type ListTasksParams struct {
	Status     string
	Category   string
	Skill      string
	PostedBy   string
	AssignedTo string
	Limit      int64
	Offset     int64
}

type BidParams struct {
	Amount       float64
	Message      string
	DeliveryDays int
}

type SubmitWorkParams struct {
	Message     string
	Attachments []string
}

// CompleteTaskParams carries optional client feedback. A zero Rating means none.
type CompleteTaskParams struct {
	Rating  int
	Comment string
}

// completionKarma is awarded to the assignee when the poster accepts the work.
const completionKarma = 10

type taskUsecase struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	logger   zerolog.Logger
	now      Clock
}

func NewTaskUsecase(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	logger *zerolog.Logger,
	clock Clock,
) TaskUsecase {
	if clock == nil {
		clock = time.Now
	}

	return &taskUsecase{
		taskRepo: taskRepo,
		userRepo: userRepo,
		logger:   logger.With().Str("component", "task").Logger(),
		now:      clock,
	}
}

func (u *taskUsecase) CreateTask(ctx context.Context, posterID string, params CreateTaskParams) (*model.Task, error) {
	poster, err := parseUserID(posterID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if err := validateCreateTask(params, now); err != nil {
		return nil, err
	}

	task := model.NewTask(
		poster,
		strings.TrimSpace(params.Title),
		strings.TrimSpace(params.Description),
		strings.TrimSpace(params.Category),
		params.SkillsRequired,
		params.Budget,
		params.Deadline,
		now,
	)

	created, err := u.taskRepo.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}

	if _, err := u.userRepo.IncrementStats(ctx, posterID, repository.StatsDelta{PostedTasks: 1}); err != nil {
		u.logger.Warn().Err(err).Str("user_id", posterID).Msg("failed to update posted task count")
	}

	return created, nil
}

func validateCreateTask(params CreateTaskParams, now time.Time) error {
	fields := map[string]string{}

	if strings.TrimSpace(params.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(params.Description) == "" {
		fields["description"] = "description is required"
	}
	if params.Budget.Amount <= 0 {
		fields["budget.amount"] = "budget must be greater than 0"
	}
	switch params.Budget.Type {
	case "", model.BudgetTypeFixed, model.BudgetTypeHourly:
	default:
		fields["budget.type"] = "budget type must be fixed or hourly"
	}
	if !params.Deadline.After(now) {
		fields["deadline"] = "deadline must be in the future"
	}

	if len(fields) > 0 {
		return Validation("Invalid task", fields)
	}
	return nil
}

func (u *taskUsecase) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := u.taskRepo.GetTask(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) ListTasks(ctx context.Context, params ListTasksParams) ([]*model.Task, error) {
	filter := repository.TaskFilter{
		Category: params.Category,
		Skill:    params.Skill,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	fields := map[string]string{}

	if params.Status != "" {
		status := model.TaskStatus(params.Status)
		if !status.Valid() {
			fields["status"] = "unknown task status"
		}
		filter.Status = status
	}
	if params.PostedBy != "" {
		id, err := bson.ObjectIDFromHex(params.PostedBy)
		if err != nil {
			fields["postedBy"] = "invalid user id"
		}
		filter.PostedBy = &id
	}
	if params.AssignedTo != "" {
		id, err := bson.ObjectIDFromHex(params.AssignedTo)
		if err != nil {
			fields["assignedTo"] = "invalid user id"
		}
		filter.AssignedTo = &id
	}

	if len(fields) > 0 {
		return nil, Validation("Invalid task filter", fields)
	}

	return u.taskRepo.ListTasks(ctx, filter)
}

func (u *taskUsecase) AddBid(ctx context.Context, taskID, bidderID string, params BidParams) (*model.Task, error) {
	bidder, err := parseUserID(bidderID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if params.Amount <= 0 {
		fields["amount"] = "amount must be greater than 0"
	}
	if params.DeliveryDays < 1 {
		fields["deliveryTime"] = "delivery time must be at least 1 day"
	}
	if len(fields) > 0 {
		return nil, Validation("Invalid bid", fields)
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if task.IsPoster(bidder) {
			return ErrCannotBidOwnTask
		}
		_, err := task.AddBid(bidder, params.Amount, strings.TrimSpace(params.Message), params.DeliveryDays, now)
		return err
	})
}

func (u *taskUsecase) WithdrawBid(ctx context.Context, taskID, bidID, bidderID string) (*model.Task, error) {
	bidder, err := parseUserID(bidderID)
	if err != nil {
		return nil, err
	}
	bid, err := bson.ObjectIDFromHex(bidID)
	if err != nil {
		return nil, ErrBidNotFound
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		return task.WithdrawBid(bid, bidder, now)
	})
}

func (u *taskUsecase) AcceptBid(ctx context.Context, taskID, bidID, posterID string) (*model.Task, error) {
	poster, err := parseUserID(posterID)
	if err != nil {
		return nil, err
	}
	bid, err := bson.ObjectIDFromHex(bidID)
	if err != nil {
		return nil, ErrBidNotFound
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsPoster(poster) {
			return ErrNotTaskPoster
		}
		return task.AcceptBid(bid, now)
	})
}

func (u *taskUsecase) StartWork(ctx context.Context, taskID, assigneeID string) (*model.Task, error) {
	assignee, err := parseUserID(assigneeID)
	if err != nil {
		return nil, err
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsAssignee(assignee) {
			return ErrNotTaskAssignee
		}
		return task.StartWork(now)
	})
}

func (u *taskUsecase) SubmitWork(
	ctx context.Context,
	taskID, assigneeID string,
	params SubmitWorkParams,
) (*model.Task, error) {
	assignee, err := parseUserID(assigneeID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(params.Message) == "" {
		return nil, Validation("Invalid submission", map[string]string{"message": "message is required"})
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsAssignee(assignee) {
			return ErrNotTaskAssignee
		}
		return task.SubmitWork(strings.TrimSpace(params.Message), params.Attachments, now)
	})
}

func (u *taskUsecase) CompleteTask(
	ctx context.Context,
	taskID, posterID string,
	params CompleteTaskParams,
) (*model.Task, error) {
	poster, err := parseUserID(posterID)
	if err != nil {
		return nil, err
	}

	var feedback *model.Feedback
	if params.Rating != 0 {
		if params.Rating < 1 || params.Rating > 5 {
			return nil, Validation("Invalid feedback", map[string]string{"rating": "rating must be between 1 and 5"})
		}
		feedback = &model.Feedback{Rating: params.Rating, Comment: strings.TrimSpace(params.Comment)}
	}

	task, err := u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsPoster(poster) {
			return ErrNotTaskPoster
		}
		return task.CompleteTask(feedback, now)
	})
	if err != nil {
		return nil, err
	}

	assigneeID := task.AssignedTo.Hex()
	_, err = u.userRepo.IncrementStats(ctx, assigneeID, repository.StatsDelta{
		CompletedTasks: 1,
		Karma:          completionKarma,
	})
	if err != nil {
		u.logger.Warn().Err(err).Str("user_id", assigneeID).Msg("failed to credit completed task")
	}

	return task, nil
}

func (u *taskUsecase) CancelTask(ctx context.Context, taskID, posterID string) (*model.Task, error) {
	poster, err := parseUserID(posterID)
	if err != nil {
		return nil, err
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsPoster(poster) {
			return ErrNotTaskPoster
		}
		return task.Cancel(now)
	})
}

func (u *taskUsecase) RaiseDispute(ctx context.Context, taskID, userID, reason string) (*model.Task, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(reason) == "" {
		return nil, Validation("Invalid dispute", map[string]string{"reason": "reason is required"})
	}

	return u.mutate(ctx, taskID, func(task *model.Task, now time.Time) error {
		if !task.IsPoster(user) && !task.IsAssignee(user) {
			return ErrNotTaskParticipant
		}
		return task.RaiseDispute(user, strings.TrimSpace(reason), now)
	})
}

// mutate loads a task, applies one transition and saves it under the version check.
func (u *taskUsecase) mutate(
	ctx context.Context,
	taskID string,
	apply func(task *model.Task, now time.Time) error,
) (*model.Task, error) {
	task, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if err := apply(task, now); err != nil {
		return nil, classifyTaskError(err)
	}

	task.PrepareForSave(now)

	if err := u.taskRepo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrTaskModified
		}
		return nil, err
	}

	return task, nil
}

func classifyTaskError(err error) error {
	switch {
	case errors.Is(err, model.ErrBidderHasActiveBid):
		return ErrDuplicateBid
	case errors.Is(err, model.ErrBidNotFound):
		return ErrBidNotFound
	case errors.Is(err, model.ErrBidNotActive):
		return ErrBidNotActive
	case errors.Is(err, model.ErrTaskNotOpenForBids), errors.Is(err, model.ErrInvalidTransition):
		return ErrInvalidTaskState.Wrap(err)
	default:
		return err
	}
}

// parseUserID parses an id taken from verified claims.
func parseUserID(id string) (bson.ObjectID, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, ErrInvalidToken
	}
	return objectID, nil
}

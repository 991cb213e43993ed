package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

// ReviewUsecase defines review creation, moderation and aggregation.
type ReviewUsecase interface {
	CreateReview(ctx context.Context, reviewerID string, params CreateReviewParams) (*model.Review, error)
	ListUserReviews(ctx context.Context, userID string, limit, offset int64) ([]*model.Review, error)
	GetUserRatingSummary(ctx context.Context, userID string) (*model.RatingSummary, error)
	MarkHelpful(ctx context.Context, reviewID, userID string) (*model.Review, error)
	FlagReview(ctx context.Context, reviewID, userID, reason string) (*model.Review, error)
}

type CreateReviewParams struct {
	TaskID   string
	Rating   int
	Comment  string
	Criteria *model.Criteria
}

type reviewUsecase struct {
	reviewRepo repository.ReviewRepository
	taskRepo   repository.TaskRepository
	userRepo   repository.UserRepository
	logger     zerolog.Logger
	now        Clock
}

func NewReviewUsecase(
	reviewRepo repository.ReviewRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	logger *zerolog.Logger,
	clock Clock,
) ReviewUsecase {
	if clock == nil {
		clock = time.Now
	}

	return &reviewUsecase{
		reviewRepo: reviewRepo,
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		logger:     logger.With().Str("component", "review").Logger(),
		now:        clock,
	}
}

func (u *reviewUsecase) CreateReview(
	ctx context.Context,
	reviewerID string,
	params CreateReviewParams,
) (*model.Review, error) {
	reviewer, err := parseUserID(reviewerID)
	if err != nil {
		return nil, err
	}

	task, err := u.taskRepo.GetTask(ctx, params.TaskID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.Status != model.TaskStatusCompleted {
		return nil, ErrTaskNotCompleted
	}

	var (
		reviewType model.ReviewType
		reviewed   bson.ObjectID
	)
	switch {
	case task.IsPoster(reviewer) && task.AssignedTo != nil:
		reviewType = model.ReviewTypeClientToFreelancer
		reviewed = *task.AssignedTo
	case task.IsAssignee(reviewer):
		reviewType = model.ReviewTypeFreelancerToClient
		reviewed = task.PostedBy
	default:
		return nil, ErrNotReviewParty
	}

	now := u.now()
	review := &model.Review{
		TaskID:         task.ID,
		ReviewerID:     reviewer,
		ReviewedUserID: reviewed,
		ReviewType:     reviewType,
		Rating:         params.Rating,
		Comment:        strings.TrimSpace(params.Comment),
		Criteria:       params.Criteria,
		Status:         model.ReviewStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := review.Validate(); err != nil {
		return nil, Validation(err.Error(), nil).Wrap(err)
	}

	created, err := u.reviewRepo.CreateReview(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	if err := u.recomputeKarma(ctx, reviewed); err != nil {
		u.logger.Warn().Err(err).Str("user_id", reviewed.Hex()).Msg("failed to recompute karma")
	}

	return created, nil
}

// recomputeKarma derives the user's karma from the ratings they received.
func (u *reviewUsecase) recomputeKarma(ctx context.Context, userID bson.ObjectID) error {
	summary, err := u.reviewRepo.RatingSummary(ctx, userID)
	if err != nil {
		return err
	}

	user, err := u.userRepo.GetUser(ctx, userID.Hex())
	if err != nil {
		return err
	}

	average := summary.Average
	if summary.Count == 0 {
		average = model.NeutralRating
	}

	return u.userRepo.SetKarma(ctx, user.ID.Hex(), model.KarmaFromRating(average, user.CompletedTasks))
}

func (u *reviewUsecase) ListUserReviews(ctx context.Context, userID string, limit, offset int64) ([]*model.Review, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u.reviewRepo.ListByReviewedUser(ctx, id, limit, offset)
}

func (u *reviewUsecase) GetUserRatingSummary(ctx context.Context, userID string) (*model.RatingSummary, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u.reviewRepo.RatingSummary(ctx, id)
}

func (u *reviewUsecase) MarkHelpful(ctx context.Context, reviewID, userID string) (*model.Review, error) {
	voter, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	review, err := u.getReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if review.ReviewerID == voter {
		return nil, ErrOwnReviewVote
	}

	updated, err := u.reviewRepo.AddHelpfulVote(ctx, review.ID, voter)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	return updated, nil
}

func (u *reviewUsecase) FlagReview(ctx context.Context, reviewID, userID, reason string) (*model.Review, error) {
	flagger, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, Validation("Invalid flag", map[string]string{"reason": "reason is required"})
	}

	review, err := u.getReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	updated, err := u.reviewRepo.AddFlag(ctx, review.ID, model.ReviewFlag{
		UserID:    flagger,
		Reason:    reason,
		CreatedAt: u.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyFlagged):
			return nil, ErrAlreadyFlagged
		case isNotFound(err):
			return nil, ErrReviewNotFound
		default:
			return nil, err
		}
	}

	if updated.Status == model.ReviewStatusFlagged && review.Status == model.ReviewStatusActive {
		u.logger.Info().Str("review_id", updated.ID.Hex()).Msg("review flagged for moderation")
		if err := u.recomputeKarma(ctx, updated.ReviewedUserID); err != nil {
			u.logger.Warn().Err(err).Str("user_id", updated.ReviewedUserID.Hex()).Msg("failed to recompute karma")
		}
	}

	return updated, nil
}

func (u *reviewUsecase) getReview(ctx context.Context, id string) (*model.Review, error) {
	review, err := u.reviewRepo.GetReview(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

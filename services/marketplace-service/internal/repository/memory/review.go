package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

type reviewRepository struct {
	mu      sync.RWMutex
	reviews map[bson.ObjectID]*model.Review
}

func NewReviewRepository() repository.ReviewRepository {
	return &reviewRepository{reviews: map[bson.ObjectID]*model.Review{}}
}

func cloneReview(r *model.Review) *model.Review {
	c := *r
	c.HelpfulVotes = slices.Clone(r.HelpfulVotes)
	c.Flags = slices.Clone(r.Flags)
	if r.Criteria != nil {
		criteria := model.Criteria{
			Quality:         clonePtr(r.Criteria.Quality),
			Communication:   clonePtr(r.Criteria.Communication),
			Timeliness:      clonePtr(r.Criteria.Timeliness),
			Professionalism: clonePtr(r.Criteria.Professionalism),
		}
		c.Criteria = &criteria
	}
	return &c
}

func (r *reviewRepository) CreateReview(_ context.Context, review *model.Review) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reviews {
		if existing.TaskID == review.TaskID &&
			existing.ReviewerID == review.ReviewerID &&
			existing.ReviewType == review.ReviewType {
			return nil, duplicateKeyError("task_id_1_reviewer_id_1_review_type_1")
		}
	}

	if review.HelpfulVotes == nil {
		review.HelpfulVotes = []bson.ObjectID{}
	}
	if review.Flags == nil {
		review.Flags = []model.ReviewFlag{}
	}
	review.ID = bson.NewObjectID()
	r.reviews[review.ID] = cloneReview(review)

	return review, nil
}

func (r *reviewRepository) GetReview(_ context.Context, id string) (*model.Review, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.reviews[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneReview(review), nil
}

func (r *reviewRepository) active(userID bson.ObjectID) []*model.Review {
	reviews := []*model.Review{}
	for _, review := range r.reviews {
		if review.ReviewedUserID == userID && review.Status == model.ReviewStatusActive {
			reviews = append(reviews, cloneReview(review))
		}
	}
	return reviews
}

func (r *reviewRepository) ListByReviewedUser(
	_ context.Context,
	userID bson.ObjectID,
	limit, offset int64,
) ([]*model.Review, error) {
	r.mu.RLock()
	reviews := r.active(userID)
	r.mu.RUnlock()

	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})

	limit, offset = repository.NormalizePage(limit, offset)
	return paginate(reviews, limit, offset), nil
}

func (r *reviewRepository) AddHelpfulVote(_ context.Context, id, userID bson.ObjectID) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	if !slices.Contains(review.HelpfulVotes, userID) {
		review.HelpfulVotes = append(review.HelpfulVotes, userID)
	}
	review.UpdatedAt = time.Now()

	return cloneReview(review), nil
}

func (r *reviewRepository) AddFlag(_ context.Context, id bson.ObjectID, flag model.ReviewFlag) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if review.HasFlagFrom(flag.UserID) {
		return nil, repository.ErrAlreadyFlagged
	}

	review.Flags = append(review.Flags, flag)
	if len(review.Flags) >= model.FlagThreshold && review.Status == model.ReviewStatusActive {
		review.Status = model.ReviewStatusFlagged
	}
	review.UpdatedAt = time.Now()

	return cloneReview(review), nil
}

func (r *reviewRepository) RatingSummary(_ context.Context, userID bson.ObjectID) (*model.RatingSummary, error) {
	r.mu.RLock()
	reviews := r.active(userID)
	r.mu.RUnlock()

	summary := repository.EmptyRatingSummary()
	if len(reviews) == 0 {
		return summary, nil
	}

	total := 0
	criteriaSum := map[string]int{}
	criteriaCount := map[string]int{}
	for _, review := range reviews {
		total += review.Rating
		summary.Distribution[review.Rating]++

		if review.Criteria == nil {
			continue
		}
		for name, v := range map[string]*int{
			"quality":         review.Criteria.Quality,
			"communication":   review.Criteria.Communication,
			"timeliness":      review.Criteria.Timeliness,
			"professionalism": review.Criteria.Professionalism,
		} {
			if v != nil {
				criteriaSum[name] += *v
				criteriaCount[name]++
			}
		}
	}

	summary.Count = len(reviews)
	summary.Average = repository.RoundRating(float64(total) / float64(len(reviews)))
	for name, sum := range criteriaSum {
		summary.Criteria[name] = repository.RoundRating(float64(sum) / float64(criteriaCount[name]))
	}

	return summary, nil
}

package model

import (
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ReviewType string

const (
	ReviewTypeClientToFreelancer ReviewType = "client_to_freelancer"
	ReviewTypeFreelancerToClient ReviewType = "freelancer_to_client"
)

type ReviewStatus string

const (
	ReviewStatusActive  ReviewStatus = "Active"
	ReviewStatusFlagged ReviewStatus = "Flagged"
	ReviewStatusHidden  ReviewStatus = "Hidden"
)

// FlagThreshold is the number of flags that hides a review from aggregates.
const FlagThreshold = 3

var (
	ErrSelfReview          = errors.New("you cannot review yourself")
	ErrRatingOutOfRange    = errors.New("rating must be between 1 and 5")
	ErrCriterionOutOfRange = errors.New("criteria ratings must be between 1 and 5")
	ErrRatingInconsistent  = errors.New("overall rating must be within 1 point of the criteria average")
	ErrInvalidReviewType   = errors.New("invalid review type")
)

// Review is one party's rating of the other after a completed task.
type Review struct {
	ID             bson.ObjectID   `bson:"_id,omitempty"    json:"id"`
	TaskID         bson.ObjectID   `bson:"task_id"          json:"taskId"`
	ReviewerID     bson.ObjectID   `bson:"reviewer_id"      json:"reviewerId"`
	ReviewedUserID bson.ObjectID   `bson:"reviewed_user_id" json:"reviewedUserId"`
	ReviewType     ReviewType      `bson:"review_type"      json:"reviewType"`
	Rating         int             `bson:"rating"           json:"rating"`
	Comment        string          `bson:"comment"          json:"comment"`
	Criteria       *Criteria       `bson:"criteria"         json:"criteria,omitempty"`
	HelpfulVotes   []bson.ObjectID `bson:"helpful_votes"    json:"helpfulVotes"`
	Flags          []ReviewFlag    `bson:"flags"            json:"-"`
	Status         ReviewStatus    `bson:"status"           json:"status"`
	CreatedAt      time.Time       `bson:"created_at"       json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updated_at"       json:"updatedAt"`
}

// Criteria holds optional per-aspect ratings.
type Criteria struct {
	Quality         *int `bson:"quality,omitempty"         json:"quality,omitempty"`
	Communication   *int `bson:"communication,omitempty"   json:"communication,omitempty"`
	Timeliness      *int `bson:"timeliness,omitempty"      json:"timeliness,omitempty"`
	Professionalism *int `bson:"professionalism,omitempty" json:"professionalism,omitempty"`
}

type ReviewFlag struct {
	UserID    bson.ObjectID `bson:"user_id"    json:"userId"`
	Reason    string        `bson:"reason"     json:"reason"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// Values returns the supplied criteria ratings.
func (c *Criteria) Values() []int {
	if c == nil {
		return nil
	}

	var out []int
	for _, v := range []*int{c.Quality, c.Communication, c.Timeliness, c.Professionalism} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Average returns the mean of the supplied criteria and false when none are set.
func (c *Criteria) Average() (float64, bool) {
	values := c.Values()
	if len(values) == 0 {
		return 0, false
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values)), true
}

// Validate enforces the invariants checked before every save.
func (r *Review) Validate() error {
	if r.ReviewerID == r.ReviewedUserID {
		return ErrSelfReview
	}

	if r.ReviewType != ReviewTypeClientToFreelancer && r.ReviewType != ReviewTypeFreelancerToClient {
		return ErrInvalidReviewType
	}

	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingOutOfRange
	}

	for _, v := range r.Criteria.Values() {
		if v < 1 || v > 5 {
			return ErrCriterionOutOfRange
		}
	}

	if avg, ok := r.Criteria.Average(); ok && math.Abs(float64(r.Rating)-avg) > 1 {
		return ErrRatingInconsistent
	}

	return nil
}

// HasFlagFrom reports whether userID already flagged the review.
func (r *Review) HasFlagFrom(userID bson.ObjectID) bool {
	for _, f := range r.Flags {
		if f.UserID == userID {
			return true
		}
	}
	return false
}

// RatingSummary aggregates the active reviews one user has received.
type RatingSummary struct {
	Average      float64            `json:"average"`
	Count        int                `json:"count"`
	Distribution map[int]int        `json:"distribution"`
	Criteria     map[string]float64 `json:"criteria"`
}

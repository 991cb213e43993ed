package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

func intPtr(v int) *int { return &v }

// completedTask runs a task through the whole lifecycle.
func (m *marketplace) completedTask(t *testing.T) *model.Task {
	t.Helper()
	ctx := context.Background()

	task := m.assignedTask(t)
	id := task.ID.Hex()

	_, err := m.tasks.StartWork(ctx, id, userIDOf(m.bidder))
	require.NoError(t, err)
	_, err = m.tasks.SubmitWork(ctx, id, userIDOf(m.bidder), SubmitWorkParams{Message: "done"})
	require.NoError(t, err)
	task, err = m.tasks.CompleteTask(ctx, id, userIDOf(m.poster), CompleteTaskParams{})
	require.NoError(t, err)

	return task
}

func TestCreateReviewRequiresCompletedTask(t *testing.T) {
	m := newMarketplace(t)
	task := m.assignedTask(t)

	_, err := m.reviews.CreateReview(context.Background(), userIDOf(m.poster), CreateReviewParams{
		TaskID: task.ID.Hex(),
		Rating: 5,
	})
	assert.ErrorIs(t, err, ErrTaskNotCompleted)
}

func TestCreateReview(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.completedTask(t)

	review, err := m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{
		TaskID:  task.ID.Hex(),
		Rating:  5,
		Comment: "Delivered early",
		Criteria: &model.Criteria{
			Quality:       intPtr(5),
			Communication: intPtr(4),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReviewTypeClientToFreelancer, review.ReviewType)
	assert.Equal(t, m.bidder.User.ID, review.ReviewedUserID)
	assert.Equal(t, model.ReviewStatusActive, review.Status)

	// 50 + (5-3)*10 + 1 completed task * 2
	freelancer, err := m.users.GetProfile(ctx, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, 72, freelancer.KarmaScore)

	_, err = m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{TaskID: task.ID.Hex(), Rating: 4})
	assert.ErrorIs(t, err, ErrDuplicateReview)

	back, err := m.reviews.CreateReview(ctx, userIDOf(m.bidder), CreateReviewParams{TaskID: task.ID.Hex(), Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, model.ReviewTypeFreelancerToClient, back.ReviewType)
	assert.Equal(t, m.poster.User.ID, back.ReviewedUserID)
}

func TestCreateReviewRejectsOutsider(t *testing.T) {
	m := newMarketplace(t)
	task := m.completedTask(t)

	_, err := m.reviews.CreateReview(context.Background(), userIDOf(m.outsider), CreateReviewParams{
		TaskID: task.ID.Hex(),
		Rating: 1,
	})
	assert.ErrorIs(t, err, ErrNotReviewParty)
}

func TestCreateReviewValidation(t *testing.T) {
	m := newMarketplace(t)
	task := m.completedTask(t)
	ctx := context.Background()

	_, err := m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{TaskID: task.ID.Hex(), Rating: 6})
	requireKind(t, err, KindValidation)
	assert.ErrorIs(t, err, model.ErrRatingOutOfRange)

	_, err = m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{
		TaskID:   task.ID.Hex(),
		Rating:   5,
		Criteria: &model.Criteria{Quality: intPtr(2), Timeliness: intPtr(2)},
	})
	assert.ErrorIs(t, err, model.ErrRatingInconsistent)
}

func TestRatingSummary(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	first := m.completedTask(t)
	second := m.completedTask(t)

	_, err := m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{
		TaskID:   first.ID.Hex(),
		Rating:   5,
		Criteria: &model.Criteria{Quality: intPtr(5)},
	})
	require.NoError(t, err)
	_, err = m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{
		TaskID:   second.ID.Hex(),
		Rating:   4,
		Criteria: &model.Criteria{Quality: intPtr(4)},
	})
	require.NoError(t, err)

	summary, err := m.reviews.GetUserRatingSummary(ctx, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
	assert.Equal(t, 1, summary.Distribution[5])
	assert.Equal(t, 1, summary.Distribution[4])
	assert.Equal(t, 0, summary.Distribution[1])
	assert.InDelta(t, 4.5, summary.Criteria["quality"], 0.001)

	reviews, err := m.reviews.ListUserReviews(ctx, userIDOf(m.bidder), 10, 0)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestMarkHelpful(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.completedTask(t)

	review, err := m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{TaskID: task.ID.Hex(), Rating: 4})
	require.NoError(t, err)

	_, err = m.reviews.MarkHelpful(ctx, review.ID.Hex(), userIDOf(m.poster))
	assert.ErrorIs(t, err, ErrOwnReviewVote)

	for i := 0; i < 2; i++ {
		review, err = m.reviews.MarkHelpful(ctx, review.ID.Hex(), userIDOf(m.outsider))
		require.NoError(t, err)
	}
	assert.Len(t, review.HelpfulVotes, 1)
}

func TestFlagReviewHidesFromAggregates(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.completedTask(t)

	review, err := m.reviews.CreateReview(ctx, userIDOf(m.poster), CreateReviewParams{TaskID: task.ID.Hex(), Rating: 1})
	require.NoError(t, err)

	flaggers := []*Session{m.bidder, m.outsider, m.signIn(t, "third@iitb.ac.in")}

	_, err = m.reviews.FlagReview(ctx, review.ID.Hex(), userIDOf(flaggers[0]), "unfair")
	require.NoError(t, err)
	_, err = m.reviews.FlagReview(ctx, review.ID.Hex(), userIDOf(flaggers[0]), "still unfair")
	assert.ErrorIs(t, err, ErrAlreadyFlagged)

	_, err = m.reviews.FlagReview(ctx, review.ID.Hex(), userIDOf(flaggers[1]), "spam")
	require.NoError(t, err)
	flagged, err := m.reviews.FlagReview(ctx, review.ID.Hex(), userIDOf(flaggers[2]), "abusive")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusFlagged, flagged.Status)

	summary, err := m.reviews.GetUserRatingSummary(ctx, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Zero(t, summary.Count)

	// Without active reviews karma falls back to the neutral baseline: 50 + 1*2.
	freelancer, err := m.users.GetProfile(ctx, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, 52, freelancer.KarmaScore)
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTask() *Task {
	return NewTask(bson.NewObjectID(), "Build a landing page", "React + Tailwind", "web", []string{"react"},
		Budget{Amount: 2000}, now.Add(72*time.Hour), now)
}

func TestNewTaskDefaults(t *testing.T) {
	task := newTestTask()
	assert.Equal(t, TaskStatusOpen, task.Status)
	assert.Equal(t, DefaultCurrency, task.Budget.Currency)
	assert.Equal(t, BudgetTypeFixed, task.Budget.Type)
	assert.Equal(t, EscrowStatusNone, task.Escrow.Status)
	assert.False(t, task.IsUrgent)
	assert.Zero(t, task.BidCount)
}

func TestAddBidRejectsSecondActiveBid(t *testing.T) {
	task := newTestTask()
	bidder := bson.NewObjectID()

	_, err := task.AddBid(bidder, 1800, "I can do it", 3, now)
	require.NoError(t, err)

	_, err = task.AddBid(bidder, 1500, "cheaper", 2, now)
	assert.ErrorIs(t, err, ErrBidderHasActiveBid)
}

func TestAddBidAfterWithdrawal(t *testing.T) {
	task := newTestTask()
	bidder := bson.NewObjectID()

	bid, err := task.AddBid(bidder, 1800, "first", 3, now)
	require.NoError(t, err)
	require.NoError(t, task.WithdrawBid(bid.ID, bidder, now))

	_, err = task.AddBid(bidder, 1700, "second", 3, now)
	assert.NoError(t, err)
}

func TestAddBidRequiresBiddableStatus(t *testing.T) {
	task := newTestTask()
	task.Status = TaskStatusAssigned

	_, err := task.AddBid(bson.NewObjectID(), 100, "late", 1, now)
	assert.ErrorIs(t, err, ErrTaskNotOpenForBids)
}

func TestAcceptBid(t *testing.T) {
	task := newTestTask()
	a, err := task.AddBid(bson.NewObjectID(), 1800, "a", 3, now)
	require.NoError(t, err)
	aID := a.ID
	b, err := task.AddBid(bson.NewObjectID(), 1600, "b", 4, now)
	require.NoError(t, err)
	bID, bBidder := b.ID, b.Bidder
	c, err := task.AddBid(bson.NewObjectID(), 1900, "c", 2, now)
	require.NoError(t, err)
	cID := c.ID
	task.PrepareForSave(now)
	require.Equal(t, TaskStatusInBidding, task.Status)
	require.Equal(t, 3, task.BidCount)

	require.NoError(t, task.AcceptBid(bID, now))

	accepted := 0
	for _, bid := range task.Bids {
		if bid.Status == BidStatusAccepted {
			accepted++
			assert.Equal(t, bID, bid.ID)
		} else {
			assert.Equal(t, BidStatusRejected, bid.Status)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, BidStatusRejected, task.FindBid(aID).Status)
	assert.Equal(t, BidStatusRejected, task.FindBid(cID).Status)
	assert.Equal(t, TaskStatusAssigned, task.Status)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, bBidder, *task.AssignedTo)
	assert.Equal(t, bID, *task.SelectedBid)
	assert.NotNil(t, task.StartedAt)
	assert.Equal(t, EscrowStatusHeld, task.Escrow.Status)
	assert.Equal(t, 1600.0, task.Escrow.Amount)

	task.PrepareForSave(now)
	assert.Equal(t, TaskStatusAssigned, task.Status)
	assert.Zero(t, task.BidCount)
}

func TestAcceptBidGuards(t *testing.T) {
	task := newTestTask()
	assert.ErrorIs(t, task.AcceptBid(bson.NewObjectID(), now), ErrBidNotFound)

	bidder := bson.NewObjectID()
	bid, err := task.AddBid(bidder, 100, "x", 1, now)
	require.NoError(t, err)
	bidID := bid.ID
	require.NoError(t, task.WithdrawBid(bidID, bidder, now))
	assert.ErrorIs(t, task.AcceptBid(bidID, now), ErrBidNotActive)
}

func TestFullLifecycle(t *testing.T) {
	task := newTestTask()
	bid, err := task.AddBid(bson.NewObjectID(), 1800, "a", 3, now)
	require.NoError(t, err)
	require.NoError(t, task.AcceptBid(bid.ID, now))

	assert.ErrorIs(t, task.SubmitWork("done", nil, now), ErrInvalidTransition)

	require.NoError(t, task.StartWork(now))
	assert.Equal(t, TaskStatusInProgress, task.Status)

	assert.ErrorIs(t, task.CompleteTask(nil, now), ErrInvalidTransition)

	require.NoError(t, task.SubmitWork("done", []string{"https://files/x.zip"}, now))
	assert.Equal(t, TaskStatusUnderReview, task.Status)
	require.NotNil(t, task.Submission)

	require.NoError(t, task.CompleteTask(&Feedback{Rating: 5, Comment: "great"}, now))
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, EscrowStatusReleased, task.Escrow.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.Equal(t, 5, task.ClientFeedback.Rating)

	assert.ErrorIs(t, task.Cancel(now), ErrInvalidTransition)
}

func TestCancelRefundsEscrow(t *testing.T) {
	task := newTestTask()
	bid, err := task.AddBid(bson.NewObjectID(), 500, "a", 3, now)
	require.NoError(t, err)
	require.NoError(t, task.AcceptBid(bid.ID, now))

	require.NoError(t, task.Cancel(now))
	assert.Equal(t, TaskStatusCancelled, task.Status)
	assert.Equal(t, EscrowStatusRefunded, task.Escrow.Status)
	assert.NotNil(t, task.CancelledAt)
}

func TestCancelRejectsPendingBids(t *testing.T) {
	task := newTestTask()
	_, err := task.AddBid(bson.NewObjectID(), 500, "a", 3, now)
	require.NoError(t, err)

	require.NoError(t, task.Cancel(now))
	assert.Equal(t, BidStatusRejected, task.Bids[0].Status)
	assert.Equal(t, EscrowStatusNone, task.Escrow.Status)
}

func TestRaiseDispute(t *testing.T) {
	task := newTestTask()
	assert.ErrorIs(t, task.RaiseDispute(task.PostedBy, "no", now), ErrInvalidTransition)

	bid, err := task.AddBid(bson.NewObjectID(), 500, "a", 3, now)
	require.NoError(t, err)
	require.NoError(t, task.AcceptBid(bid.ID, now))
	require.NoError(t, task.StartWork(now))

	require.NoError(t, task.RaiseDispute(task.PostedBy, "missed scope", now))
	assert.Equal(t, TaskStatusDisputed, task.Status)
	assert.Equal(t, "missed scope", task.Dispute.Reason)
}

func TestPrepareForSaveOverwritesDerivedFields(t *testing.T) {
	task := newTestTask()
	task.BidCount = 42
	task.IsUrgent = true
	task.PrepareForSave(now)
	assert.Zero(t, task.BidCount)
	assert.False(t, task.IsUrgent)

	task.Deadline = now.Add(3 * time.Hour)
	task.PrepareForSave(now)
	assert.True(t, task.IsUrgent)

	task.Deadline = now.Add(-time.Hour)
	task.PrepareForSave(now)
	assert.False(t, task.IsUrgent)
}

func TestPrepareForSaveReopensWhenBidsWithdrawn(t *testing.T) {
	task := newTestTask()
	bidder := bson.NewObjectID()
	bid, err := task.AddBid(bidder, 100, "x", 1, now)
	require.NoError(t, err)
	bidID := bid.ID
	task.PrepareForSave(now)
	require.Equal(t, TaskStatusInBidding, task.Status)

	require.NoError(t, task.WithdrawBid(bidID, bidder, now))
	task.PrepareForSave(now)
	assert.Equal(t, TaskStatusOpen, task.Status)
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

type marketplace struct {
	*fixture
	poster   *Session
	bidder   *Session
	outsider *Session
}

func newMarketplace(t *testing.T) *marketplace {
	f := newFixture(t)
	return &marketplace{
		fixture:  f,
		poster:   f.signIn(t, "poster@vce.ac.in"),
		bidder:   f.signIn(t, "bidder@vce.ac.in"),
		outsider: f.signIn(t, "outsider@iitb.ac.in"),
	}
}

func (m *marketplace) createTask(t *testing.T) *model.Task {
	t.Helper()
	task, err := m.tasks.CreateTask(context.Background(), userIDOf(m.poster),
		newTaskParams(m.clock.Now().Add(72*time.Hour)))
	require.NoError(t, err)
	return task
}

// assignedTask returns a task whose bid from m.bidder was accepted.
func (m *marketplace) assignedTask(t *testing.T) *model.Task {
	t.Helper()
	ctx := context.Background()

	task := m.createTask(t)
	task, err := m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{
		Amount:       1200,
		Message:      "Done in two days",
		DeliveryDays: 2,
	})
	require.NoError(t, err)

	task, err = m.tasks.AcceptBid(ctx, task.ID.Hex(), task.Bids[0].ID.Hex(), userIDOf(m.poster))
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	task := m.createTask(t)
	assert.Equal(t, model.TaskStatusOpen, task.Status)
	assert.Equal(t, m.poster.User.ID, task.PostedBy)
	assert.Equal(t, "INR", task.Budget.Currency)
	assert.EqualValues(t, 1, task.Version)

	poster, err := m.users.GetProfile(ctx, userIDOf(m.poster))
	require.NoError(t, err)
	assert.Equal(t, 1, poster.PostedTasks)
}

func TestCreateTaskValidation(t *testing.T) {
	m := newMarketplace(t)

	params := newTaskParams(m.clock.Now().Add(-time.Hour))
	params.Title = " "
	params.Budget.Amount = 0

	_, err := m.tasks.CreateTask(context.Background(), userIDOf(m.poster), params)
	requireKind(t, err, KindValidation)

	fields, ok := detail(t, err, "fields").(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "budget.amount")
	assert.Contains(t, fields, "deadline")
}

func TestAddBid(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.createTask(t)

	updated, err := m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{Amount: 1000, DeliveryDays: 3})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInBidding, updated.Status)
	assert.Equal(t, 1, updated.BidCount)

	_, err = m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{Amount: 900, DeliveryDays: 3})
	assert.ErrorIs(t, err, ErrDuplicateBid)
	requireKind(t, err, KindConflict)

	_, err = m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.poster), BidParams{Amount: 900, DeliveryDays: 3})
	assert.ErrorIs(t, err, ErrCannotBidOwnTask)
}

func TestWithdrawBidReopensTask(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.createTask(t)

	task, err := m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{Amount: 1000, DeliveryDays: 3})
	require.NoError(t, err)

	task, err = m.tasks.WithdrawBid(ctx, task.ID.Hex(), task.Bids[0].ID.Hex(), userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusOpen, task.Status)
	assert.Zero(t, task.BidCount)
	assert.Equal(t, model.BidStatusWithdrawn, task.Bids[0].Status)
}

func TestAcceptBid(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.createTask(t)

	task, err := m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{Amount: 1000, DeliveryDays: 3})
	require.NoError(t, err)
	task, err = m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.outsider), BidParams{Amount: 800, DeliveryDays: 5})
	require.NoError(t, err)

	_, err = m.tasks.AcceptBid(ctx, task.ID.Hex(), task.Bids[0].ID.Hex(), userIDOf(m.bidder))
	assert.ErrorIs(t, err, ErrNotTaskPoster)

	task, err = m.tasks.AcceptBid(ctx, task.ID.Hex(), task.Bids[0].ID.Hex(), userIDOf(m.poster))
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusAssigned, task.Status)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, m.bidder.User.ID, *task.AssignedTo)
	assert.Equal(t, model.BidStatusAccepted, task.Bids[0].Status)
	assert.Equal(t, model.BidStatusRejected, task.Bids[1].Status)
	assert.Equal(t, model.EscrowStatusHeld, task.Escrow.Status)
	assert.InDelta(t, 1000, task.Escrow.Amount, 0.001)
	assert.NotNil(t, task.StartedAt)

	_, err = m.tasks.AcceptBid(ctx, task.ID.Hex(), task.Bids[1].ID.Hex(), userIDOf(m.poster))
	requireKind(t, err, KindInvalidState)
}

func TestTaskLifecycleCreditsAssignee(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.assignedTask(t)
	id := task.ID.Hex()

	_, err := m.tasks.SubmitWork(ctx, id, userIDOf(m.bidder), SubmitWorkParams{Message: "early"})
	requireKind(t, err, KindInvalidState)

	_, err = m.tasks.StartWork(ctx, id, userIDOf(m.poster))
	assert.ErrorIs(t, err, ErrNotTaskAssignee)

	task, err = m.tasks.StartWork(ctx, id, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, task.Status)

	task, err = m.tasks.SubmitWork(ctx, id, userIDOf(m.bidder), SubmitWorkParams{
		Message:     "Poster attached",
		Attachments: []string{"https://files.example/poster.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusUnderReview, task.Status)

	task, err = m.tasks.CompleteTask(ctx, id, userIDOf(m.poster), CompleteTaskParams{Rating: 5, Comment: "Great"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.Equal(t, model.EscrowStatusReleased, task.Escrow.Status)
	require.NotNil(t, task.ClientFeedback)
	assert.Equal(t, 5, task.ClientFeedback.Rating)

	assignee, err := m.users.GetProfile(ctx, userIDOf(m.bidder))
	require.NoError(t, err)
	assert.Equal(t, 1, assignee.CompletedTasks)
	assert.Equal(t, 60, assignee.KarmaScore)
}

func TestCancelTask(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.assignedTask(t)

	task, err := m.tasks.CancelTask(ctx, task.ID.Hex(), userIDOf(m.poster))
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, task.Status)
	assert.Equal(t, model.EscrowStatusRefunded, task.Escrow.Status)
}

func TestRaiseDispute(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.assignedTask(t)
	id := task.ID.Hex()

	_, err := m.tasks.StartWork(ctx, id, userIDOf(m.bidder))
	require.NoError(t, err)

	_, err = m.tasks.RaiseDispute(ctx, id, userIDOf(m.outsider), "not mine")
	assert.ErrorIs(t, err, ErrNotTaskParticipant)

	task, err = m.tasks.RaiseDispute(ctx, id, userIDOf(m.poster), "No progress for a week")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDisputed, task.Status)
	require.NotNil(t, task.Dispute)
	assert.Equal(t, m.poster.User.ID, task.Dispute.RaisedBy)
}

func TestStaleTaskWriteConflicts(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	task := m.createTask(t)

	stale, err := m.taskRepo.GetTask(ctx, task.ID.Hex())
	require.NoError(t, err)

	_, err = m.tasks.AddBid(ctx, task.ID.Hex(), userIDOf(m.bidder), BidParams{Amount: 1000, DeliveryDays: 3})
	require.NoError(t, err)

	stale.Title = "overwritten"
	assert.ErrorIs(t, m.taskRepo.UpdateTask(ctx, stale), repository.ErrVersionConflict)

	current, err := m.tasks.GetTask(ctx, task.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Design a club poster", current.Title)
	assert.Len(t, current.Bids, 1)
}

func TestListTasks(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	m.createTask(t)
	m.clock.Advance(time.Second)
	assigned := m.assignedTask(t)

	open, err := m.tasks.ListTasks(ctx, ListTasksParams{Status: string(model.TaskStatusOpen)})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	mine, err := m.tasks.ListTasks(ctx, ListTasksParams{AssignedTo: userIDOf(m.bidder)})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, assigned.ID, mine[0].ID)

	all, err := m.tasks.ListTasks(ctx, ListTasksParams{Skill: "figma"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = m.tasks.ListTasks(ctx, ListTasksParams{Status: "Sleeping"})
	requireKind(t, err, KindValidation)
}

func TestGetTaskNotFound(t *testing.T) {
	m := newMarketplace(t)

	_, err := m.tasks.GetTask(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

package model

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen        TaskStatus = "Open"
	TaskStatusInBidding   TaskStatus = "In Bidding"
	TaskStatusAssigned    TaskStatus = "Assigned"
	TaskStatusInProgress  TaskStatus = "In Progress"
	TaskStatusUnderReview TaskStatus = "Under Review"
	TaskStatusCompleted   TaskStatus = "Completed"
	TaskStatusCancelled   TaskStatus = "Cancelled"
	TaskStatusDisputed    TaskStatus = "Disputed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInBidding, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusUnderReview, TaskStatusCompleted, TaskStatusCancelled, TaskStatusDisputed:
		return true
	}
	return false
}

// BidStatus is the state of a single bid.
type BidStatus string

const (
	BidStatusActive    BidStatus = "Active"
	BidStatusAccepted  BidStatus = "Accepted"
	BidStatusRejected  BidStatus = "Rejected"
	BidStatusWithdrawn BidStatus = "Withdrawn"
)

// EscrowStatus tracks the funds committed against an accepted bid.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = "None"
	EscrowStatusHeld     EscrowStatus = "Held"
	EscrowStatusReleased EscrowStatus = "Released"
	EscrowStatusRefunded EscrowStatus = "Refunded"
)

const (
	BudgetTypeFixed  = "fixed"
	BudgetTypeHourly = "hourly"

	DefaultCurrency = "INR"

	// urgentWindow marks a task urgent when its deadline is this close.
	urgentWindow = 24 * time.Hour
)

var (
	ErrBidderHasActiveBid = errors.New("you already have an active bid on this task")
	ErrTaskNotOpenForBids = errors.New("task is not accepting bids")
	ErrBidNotFound        = errors.New("bid not found")
	ErrBidNotActive       = errors.New("bid is not active")
	ErrInvalidTransition  = errors.New("invalid task status transition")
)

// Task is a gig posted by one student and delivered by another.
type Task struct {
	ID             bson.ObjectID  `bson:"_id,omitempty"   json:"id"`
	Title          string         `bson:"title"           json:"title"`
	Description    string         `bson:"description"     json:"description"`
	Category       string         `bson:"category"        json:"category"`
	SkillsRequired []string       `bson:"skills_required" json:"skillsRequired"`
	Budget         Budget         `bson:"budget"          json:"budget"`
	Deadline       time.Time      `bson:"deadline"        json:"deadline"`
	PostedBy       bson.ObjectID  `bson:"posted_by"       json:"postedBy"`
	AssignedTo     *bson.ObjectID `bson:"assigned_to"     json:"assignedTo,omitempty"`
	SelectedBid    *bson.ObjectID `bson:"selected_bid"    json:"selectedBid,omitempty"`
	Status         TaskStatus     `bson:"status"          json:"status"`
	Bids           []Bid          `bson:"bids"            json:"bids"`
	Escrow         Escrow         `bson:"escrow"          json:"escrow"`
	Submission     *Submission    `bson:"submission"      json:"submission,omitempty"`
	ClientFeedback *Feedback      `bson:"client_feedback" json:"clientFeedback,omitempty"`
	Dispute        *Dispute       `bson:"dispute"         json:"dispute,omitempty"`
	BidCount       int            `bson:"bid_count"       json:"bidCount"`
	IsUrgent       bool           `bson:"is_urgent"       json:"isUrgent"`
	StartedAt      *time.Time     `bson:"started_at"      json:"startedAt,omitempty"`
	SubmittedAt    *time.Time     `bson:"submitted_at"    json:"submittedAt,omitempty"`
	CompletedAt    *time.Time     `bson:"completed_at"    json:"completedAt,omitempty"`
	CancelledAt    *time.Time     `bson:"cancelled_at"    json:"cancelledAt,omitempty"`
	Version        int64          `bson:"version"         json:"version"`
	CreatedAt      time.Time      `bson:"created_at"      json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updated_at"      json:"updatedAt"`
}

type Budget struct {
	Amount   float64 `bson:"amount"   json:"amount"`
	Currency string  `bson:"currency" json:"currency"`
	Type     string  `bson:"type"     json:"type"`
}

type Bid struct {
	ID           bson.ObjectID `bson:"_id"           json:"id"`
	Bidder       bson.ObjectID `bson:"bidder"        json:"bidder"`
	Amount       float64       `bson:"amount"        json:"amount"`
	Message      string        `bson:"message"       json:"message"`
	DeliveryDays int           `bson:"delivery_time" json:"deliveryTime"`
	Status       BidStatus     `bson:"status"        json:"status"`
	CreatedAt    time.Time     `bson:"created_at"    json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at"    json:"updatedAt"`
}

type Escrow struct {
	Amount     float64      `bson:"amount"      json:"amount"`
	Status     EscrowStatus `bson:"status"      json:"status"`
	HeldAt     *time.Time   `bson:"held_at"     json:"heldAt,omitempty"`
	ReleasedAt *time.Time   `bson:"released_at" json:"releasedAt,omitempty"`
	RefundedAt *time.Time   `bson:"refunded_at" json:"refundedAt,omitempty"`
}

type Submission struct {
	Message     string    `bson:"message"      json:"message"`
	Attachments []string  `bson:"attachments"  json:"attachments,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submittedAt"`
}

type Feedback struct {
	Rating  int    `bson:"rating"  json:"rating"`
	Comment string `bson:"comment" json:"comment,omitempty"`
}

type Dispute struct {
	RaisedBy bson.ObjectID `bson:"raised_by" json:"raisedBy"`
	Reason   string        `bson:"reason"    json:"reason"`
	RaisedAt time.Time     `bson:"raised_at" json:"raisedAt"`
}

// NewTask returns an Open task with derived fields computed.
func NewTask(postedBy bson.ObjectID, title, description, category string, skills []string, budget Budget, deadline, now time.Time) *Task {
	if budget.Currency == "" {
		budget.Currency = DefaultCurrency
	}
	if budget.Type == "" {
		budget.Type = BudgetTypeFixed
	}
	if skills == nil {
		skills = []string{}
	}

	t := &Task{
		Title:          title,
		Description:    description,
		Category:       category,
		SkillsRequired: skills,
		Budget:         budget,
		Deadline:       deadline,
		PostedBy:       postedBy,
		Status:         TaskStatusOpen,
		Bids:           []Bid{},
		Escrow:         Escrow{Status: EscrowStatusNone},
		CreatedAt:      now,
	}
	t.PrepareForSave(now)

	return t
}

// IsPoster reports whether userID posted the task.
func (t *Task) IsPoster(userID bson.ObjectID) bool {
	return t.PostedBy == userID
}

// IsAssignee reports whether userID is the student doing the work.
func (t *Task) IsAssignee(userID bson.ObjectID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// FindBid returns the bid with the given id.
func (t *Task) FindBid(bidID bson.ObjectID) *Bid {
	for i := range t.Bids {
		if t.Bids[i].ID == bidID {
			return &t.Bids[i]
		}
	}
	return nil
}

// ActiveBidFor returns bidderID's active bid, if any.
func (t *Task) ActiveBidFor(bidderID bson.ObjectID) *Bid {
	for i := range t.Bids {
		if t.Bids[i].Bidder == bidderID && t.Bids[i].Status == BidStatusActive {
			return &t.Bids[i]
		}
	}
	return nil
}

// AddBid appends an active bid. A bidder holds at most one active bid per task.
func (t *Task) AddBid(bidderID bson.ObjectID, amount float64, message string, deliveryDays int, now time.Time) (*Bid, error) {
	if t.ActiveBidFor(bidderID) != nil {
		return nil, ErrBidderHasActiveBid
	}

	if t.Status != TaskStatusOpen && t.Status != TaskStatusInBidding {
		return nil, ErrTaskNotOpenForBids
	}

	t.Bids = append(t.Bids, Bid{
		ID:           bson.NewObjectID(),
		Bidder:       bidderID,
		Amount:       amount,
		Message:      message,
		DeliveryDays: deliveryDays,
		Status:       BidStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	return &t.Bids[len(t.Bids)-1], nil
}

// WithdrawBid retracts bidderID's active bid.
func (t *Task) WithdrawBid(bidID, bidderID bson.ObjectID, now time.Time) error {
	bid := t.FindBid(bidID)
	if bid == nil || bid.Bidder != bidderID {
		return ErrBidNotFound
	}
	if bid.Status != BidStatusActive {
		return ErrBidNotActive
	}

	bid.Status = BidStatusWithdrawn
	bid.UpdatedAt = now
	return nil
}

// AcceptBid assigns the task to the bid's author. Every other bid is rejected and
// the bid amount is held in escrow.
func (t *Task) AcceptBid(bidID bson.ObjectID, now time.Time) error {
	if t.Status != TaskStatusOpen && t.Status != TaskStatusInBidding {
		return t.transitionError(TaskStatusAssigned)
	}

	bid := t.FindBid(bidID)
	if bid == nil {
		return ErrBidNotFound
	}
	if bid.Status != BidStatusActive {
		return ErrBidNotActive
	}

	for i := range t.Bids {
		if t.Bids[i].ID == bidID {
			t.Bids[i].Status = BidStatusAccepted
		} else if t.Bids[i].Status == BidStatusActive {
			t.Bids[i].Status = BidStatusRejected
		} else {
			continue
		}
		t.Bids[i].UpdatedAt = now
	}

	assignee := bid.Bidder
	selected := bid.ID
	started := now
	held := now

	t.AssignedTo = &assignee
	t.SelectedBid = &selected
	t.StartedAt = &started
	t.Status = TaskStatusAssigned
	t.Escrow = Escrow{
		Amount: bid.Amount,
		Status: EscrowStatusHeld,
		HeldAt: &held,
	}

	return nil
}

// StartWork moves an assigned task into progress.
func (t *Task) StartWork(now time.Time) error {
	if t.Status != TaskStatusAssigned {
		return t.transitionError(TaskStatusInProgress)
	}

	t.Status = TaskStatusInProgress
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	return nil
}

// SubmitWork hands the deliverable to the poster for review.
func (t *Task) SubmitWork(message string, attachments []string, now time.Time) error {
	if t.Status != TaskStatusInProgress {
		return t.transitionError(TaskStatusUnderReview)
	}

	t.Submission = &Submission{
		Message:     message,
		Attachments: attachments,
		SubmittedAt: now,
	}
	t.SubmittedAt = &now
	t.Status = TaskStatusUnderReview
	return nil
}

// CompleteTask accepts the submitted work and releases escrow.
func (t *Task) CompleteTask(feedback *Feedback, now time.Time) error {
	if t.Status != TaskStatusUnderReview {
		return t.transitionError(TaskStatusCompleted)
	}

	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.ClientFeedback = feedback
	if t.Escrow.Status == EscrowStatusHeld {
		t.Escrow.Status = EscrowStatusReleased
		t.Escrow.ReleasedAt = &now
	}
	return nil
}

// Cancel withdraws a task that has not started. Pending bids are rejected and held
// escrow is refunded.
func (t *Task) Cancel(now time.Time) error {
	switch t.Status {
	case TaskStatusOpen, TaskStatusInBidding, TaskStatusAssigned:
	default:
		return t.transitionError(TaskStatusCancelled)
	}

	for i := range t.Bids {
		if t.Bids[i].Status == BidStatusActive {
			t.Bids[i].Status = BidStatusRejected
			t.Bids[i].UpdatedAt = now
		}
	}

	if t.Escrow.Status == EscrowStatusHeld {
		t.Escrow.Status = EscrowStatusRefunded
		t.Escrow.RefundedAt = &now
	}

	t.Status = TaskStatusCancelled
	t.CancelledAt = &now
	return nil
}

// RaiseDispute freezes a task whose delivery is contested.
func (t *Task) RaiseDispute(raisedBy bson.ObjectID, reason string, now time.Time) error {
	if t.Status != TaskStatusInProgress && t.Status != TaskStatusUnderReview {
		return t.transitionError(TaskStatusDisputed)
	}

	t.Dispute = &Dispute{RaisedBy: raisedBy, Reason: reason, RaisedAt: now}
	t.Status = TaskStatusDisputed
	return nil
}

// PrepareForSave recomputes derived fields. It runs before every write, so stored
// values for these fields are never trusted.
func (t *Task) PrepareForSave(now time.Time) {
	active := 0
	for _, bid := range t.Bids {
		if bid.Status == BidStatusActive {
			active++
		}
	}
	t.BidCount = active

	untilDeadline := t.Deadline.Sub(now)
	t.IsUrgent = untilDeadline > 0 && untilDeadline <= urgentWindow

	switch {
	case t.Status == TaskStatusOpen && active > 0:
		t.Status = TaskStatusInBidding
	case t.Status == TaskStatusInBidding && active == 0:
		t.Status = TaskStatusOpen
	}

	t.UpdatedAt = now
}

func (t *Task) transitionError(to TaskStatus) error {
	return fmt.Errorf("%w: cannot move from %q to %q", ErrInvalidTransition, t.Status, to)
}

package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

type taskRepository struct {
	mu    sync.RWMutex
	tasks map[bson.ObjectID]*model.Task
}

func NewTaskRepository() repository.TaskRepository {
	return &taskRepository{tasks: map[bson.ObjectID]*model.Task{}}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneTask(t *model.Task) *model.Task {
	c := *t
	c.SkillsRequired = slices.Clone(t.SkillsRequired)
	c.Bids = slices.Clone(t.Bids)
	c.AssignedTo = clonePtr(t.AssignedTo)
	c.SelectedBid = clonePtr(t.SelectedBid)
	c.Escrow.HeldAt = clonePtr(t.Escrow.HeldAt)
	c.Escrow.ReleasedAt = clonePtr(t.Escrow.ReleasedAt)
	c.Escrow.RefundedAt = clonePtr(t.Escrow.RefundedAt)
	if t.Submission != nil {
		s := *t.Submission
		s.Attachments = slices.Clone(t.Submission.Attachments)
		c.Submission = &s
	}
	c.ClientFeedback = clonePtr(t.ClientFeedback)
	c.Dispute = clonePtr(t.Dispute)
	c.StartedAt = clonePtr(t.StartedAt)
	c.SubmittedAt = clonePtr(t.SubmittedAt)
	c.CompletedAt = clonePtr(t.CompletedAt)
	c.CancelledAt = clonePtr(t.CancelledAt)
	return &c
}

func (r *taskRepository) CreateTask(_ context.Context, task *model.Task) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task.ID = bson.NewObjectID()
	task.Version = 1
	r.tasks[task.ID] = cloneTask(task)

	return task, nil
}

func (r *taskRepository) GetTask(_ context.Context, id string) (*model.Task, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneTask(task), nil
}

func (r *taskRepository) UpdateTask(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok || stored.Version != task.Version {
		return repository.ErrVersionConflict
	}

	task.Version++
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *taskRepository) ListTasks(_ context.Context, filter repository.TaskFilter) ([]*model.Task, error) {
	r.mu.RLock()
	tasks := []*model.Task{}
	for _, t := range r.tasks {
		if matchesTaskFilter(t, filter) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	return paginate(tasks, limit, offset), nil
}

func matchesTaskFilter(t *model.Task, filter repository.TaskFilter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.Category != "" && t.Category != filter.Category {
		return false
	}
	if filter.Skill != "" && !slices.Contains(t.SkillsRequired, filter.Skill) {
		return false
	}
	if filter.PostedBy != nil && t.PostedBy != *filter.PostedBy {
		return false
	}
	if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
		return false
	}
	return true
}

package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

type userRepository struct {
	mu      sync.RWMutex
	users   map[bson.ObjectID]*model.User
	byEmail map[string]bson.ObjectID
}

func NewUserRepository() repository.UserRepository {
	return &userRepository{
		users:   map[bson.ObjectID]*model.User{},
		byEmail: map[string]bson.ObjectID{},
	}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	return &c
}

func (r *userRepository) UpsertOnLogin(_ context.Context, params repository.LoginParams) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(params.Email)
	if id, ok := r.byEmail[email]; ok {
		user := r.users[id]
		user.Institution = params.Institution
		user.Domain = params.Domain
		user.LastLoginAt = params.Now
		user.UpdatedAt = params.Now
		return cloneUser(user), nil
	}

	user := &model.User{
		ID:          bson.NewObjectID(),
		Email:       email,
		Name:        repository.DisplayNameFromEmail(email),
		Institution: params.Institution,
		Domain:      params.Domain,
		KarmaScore:  model.DefaultKarmaScore,
		Skills:      []model.Skill{},
		VerifiedAt:  params.Now,
		LastLoginAt: params.Now,
		CreatedAt:   params.Now,
		UpdatedAt:   params.Now,
	}
	r.users[user.ID] = user
	r.byEmail[email] = user.ID

	return cloneUser(user), nil
}

func (r *userRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneUser(user), nil
}

func (r *userRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneUser(r.users[id]), nil
}

func (r *userRepository) UpdateUser(_ context.Context, id string, params repository.UpdateUserParams) (*model.User, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if params.Name == nil && params.Bio == nil && params.AvatarURL == nil && params.Skills == nil {
		return nil, errors.New("no user fields to update")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Bio != nil {
		user.Bio = *params.Bio
	}
	if params.AvatarURL != nil {
		user.AvatarURL = *params.AvatarURL
	}
	if params.Skills != nil {
		user.Skills = slices.Clone(*params.Skills)
	}
	user.UpdatedAt = time.Now()

	return cloneUser(user), nil
}

func (r *userRepository) IncrementStats(_ context.Context, id string, delta repository.StatsDelta) (*model.User, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	user.CompletedTasks += delta.CompletedTasks
	user.PostedTasks += delta.PostedTasks
	user.KarmaScore = model.ClampKarma(user.KarmaScore + delta.Karma)
	user.UpdatedAt = time.Now()

	return cloneUser(user), nil
}

func (r *userRepository) SetKarma(_ context.Context, id string, karma int) error {
	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[objectID]
	if !ok {
		return mongo.ErrNoDocuments
	}

	user.KarmaScore = model.ClampKarma(karma)
	user.UpdatedAt = time.Now()
	return nil
}

func (r *userRepository) ListByKarma(_ context.Context, limit int64) ([]*model.User, error) {
	if limit <= 0 {
		limit = 10
	}

	r.mu.RLock()
	users := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, cloneUser(u))
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].KarmaScore != users[j].KarmaScore {
			return users[i].KarmaScore > users[j].KarmaScore
		}
		return users[i].CompletedTasks > users[j].CompletedTasks
	})

	return paginate(users, limit, 0), nil
}

package usecase

import (
	"context"
	"strings"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

// UserUsecase defines profile and leaderboard operations.
type UserUsecase interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*model.User, error)
	Leaderboard(ctx context.Context, limit int64) ([]*model.User, error)
}

// UpdateProfileParams defines the optional profile fields. Nil fields are left unchanged.
type UpdateProfileParams struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	Skills    *[]string
}

const maxLeaderboardSize = 100

type userUsecase struct {
	userRepo repository.UserRepository
}

func NewUserUsecase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) GetProfile(ctx context.Context, id string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (u *userUsecase) UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*model.User, error) {
	current, err := u.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	update := repository.UpdateUserParams{
		Bio:       params.Bio,
		AvatarURL: params.AvatarURL,
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, Validation("Invalid profile", map[string]string{"name": "name cannot be empty"})
		}
		update.Name = &name
	}

	if params.Skills != nil {
		skills := mergeSkills(current.Skills, *params.Skills)
		update.Skills = &skills
	}

	if update.Name == nil && update.Bio == nil && update.AvatarURL == nil && update.Skills == nil {
		return current, nil
	}

	user, err := u.userRepo.UpdateUser(ctx, id, update)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// mergeSkills replaces the skill list with names. Skills the user adds start
// unverified; skills that were already verified keep their status.
func mergeSkills(existing []model.Skill, names []string) []model.Skill {
	verified := map[string]bool{}
	for _, s := range existing {
		if s.Verified {
			verified[strings.ToLower(s.Name)] = true
		}
	}

	seen := map[string]bool{}
	skills := []model.Skill{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, model.Skill{Name: name, Verified: verified[key]})
	}

	return skills
}

func (u *userUsecase) Leaderboard(ctx context.Context, limit int64) ([]*model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return u.userRepo.ListByKarma(ctx, limit)
}

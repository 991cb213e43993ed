package payload

import (
	"time"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
)

// UpdateProfileRequest leaves absent fields unchanged.
type UpdateProfileRequest struct {
	Name      *string   `json:"name"      validate:"omitempty,min=1,max=80"`
	Bio       *string   `json:"bio"       validate:"omitempty,max=500"`
	AvatarURL *string   `json:"avatarUrl" validate:"omitempty,url"`
	Skills    *[]string `json:"skills"    validate:"omitempty,max=30,dive,required,max=40"`
}

// PublicProfile is what unauthenticated callers see of a student. It leaves
// out the email address and login timestamps.
type PublicProfile struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Bio            string        `json:"bio,omitempty"`
	AvatarURL      string        `json:"avatarUrl,omitempty"`
	Institution    string        `json:"institution"`
	KarmaScore     int           `json:"karmaScore"`
	Skills         []model.Skill `json:"skills"`
	CompletedTasks int           `json:"completedTasks"`
	PostedTasks    int           `json:"postedTasks"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func NewPublicProfile(user *model.User) PublicProfile {
	return PublicProfile{
		ID:             user.ID.Hex(),
		Name:           user.Name,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		Institution:    user.Institution,
		KarmaScore:     user.KarmaScore,
		Skills:         user.Skills,
		CompletedTasks: user.CompletedTasks,
		PostedTasks:    user.PostedTasks,
		CreatedAt:      user.CreatedAt,
	}
}

func NewPublicProfiles(users []*model.User) []PublicProfile {
	profiles := make([]PublicProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, NewPublicProfile(user))
	}
	return profiles
}

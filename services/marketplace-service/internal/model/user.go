package model

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultKarmaScore is the reputation every new student starts with.
const DefaultKarmaScore = 50

// User represents a student account. Accounts are created on first successful
// sign-in and never hard-deleted.
type User struct {
	ID             bson.ObjectID `bson:"_id,omitempty"   json:"id"`
	Email          string        `bson:"email"           json:"email"`
	Name           string        `bson:"name"            json:"name"`
	Bio            string        `bson:"bio"             json:"bio,omitempty"`
	AvatarURL      string        `bson:"avatar_url"      json:"avatarUrl,omitempty"`
	Institution    string        `bson:"institution"     json:"institution"`
	Domain         string        `bson:"domain"          json:"domain"`
	KarmaScore     int           `bson:"karma_score"     json:"karmaScore"`
	Skills         []Skill       `bson:"skills"          json:"skills"`
	CompletedTasks int           `bson:"completed_tasks" json:"completedTasks"`
	PostedTasks    int           `bson:"posted_tasks"    json:"postedTasks"`
	VerifiedAt     time.Time     `bson:"verified_at"     json:"verifiedAt"`
	LastLoginAt    time.Time     `bson:"last_login_at"   json:"lastLoginAt"`
	CreatedAt      time.Time     `bson:"created_at"      json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updated_at"      json:"updatedAt"`
}

// Skill is a self-declared or verified competency.
type Skill struct {
	Name     string `bson:"name"     json:"name"`
	Verified bool   `bson:"verified" json:"verified"`
}

// ClampKarma bounds a karma score to [0, 100].
func ClampKarma(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// NeutralRating is the average assumed for a user with no active reviews.
const NeutralRating = 3.0

// KarmaFromRating derives karma from a user's average review rating and the
// number of tasks they completed.
func KarmaFromRating(averageRating float64, completedTasks int) int {
	score := float64(DefaultKarmaScore) + (averageRating-NeutralRating)*10 + float64(completedTasks)*2
	return ClampKarma(int(math.Round(score)))
}

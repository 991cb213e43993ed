package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
)

type otpRepository struct {
	mu   sync.Mutex
	otps map[bson.ObjectID]*model.OTP
}

func NewOTPRepository() repository.OTPRepository {
	return &otpRepository{otps: map[bson.ObjectID]*model.OTP{}}
}

func (r *otpRepository) ReplaceForEmail(_ context.Context, otp *model.OTP) (*model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, existing := range r.otps {
		if existing.Email == otp.Email || existing.IsExpired(now) {
			delete(r.otps, id)
		}
	}

	otp.ID = bson.NewObjectID()
	otp.CreatedAt = now
	otp.UpdatedAt = now
	otp.Attempts = 0
	otp.Verified = false

	stored := *otp
	r.otps[otp.ID] = &stored

	return otp, nil
}

func (r *otpRepository) GetLatestUnverified(_ context.Context, email string) (*model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *model.OTP
	for _, otp := range r.otps {
		if otp.Email != email || otp.Verified {
			continue
		}
		if latest == nil || otp.CreatedAt.After(latest.CreatedAt) {
			latest = otp
		}
	}

	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}

	c := *latest
	return &c, nil
}

func (r *otpRepository) IncrementAttempts(_ context.Context, id bson.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp, ok := r.otps[id]
	if !ok {
		return 0, mongo.ErrNoDocuments
	}

	otp.Attempts++
	otp.UpdatedAt = time.Now()
	return otp.Attempts, nil
}

func (r *otpRepository) MarkVerified(_ context.Context, id bson.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp, ok := r.otps[id]
	if !ok || otp.Verified {
		return false, nil
	}

	otp.Verified = true
	otp.UpdatedAt = time.Now()
	return true, nil
}

func (r *otpRepository) Delete(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.otps, id)
	return nil
}

type otpRequestRepository struct {
	mu      sync.Mutex
	windows map[string]*model.OTPRequestWindow
}

func NewOTPRequestRepository() repository.OTPRequestRepository {
	return &otpRequestRepository{windows: map[string]*model.OTPRequestWindow{}}
}

func (r *otpRequestRepository) Hit(
	_ context.Context,
	email string,
	limit int,
	window time.Duration,
	now time.Time,
) (*repository.RateWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, w := range r.windows {
		if key != email && !now.Before(w.ExpiresAt) {
			delete(r.windows, key)
		}
	}

	current, ok := r.windows[email]
	if !ok || !current.WindowStartedAt.After(now.Add(-window)) {
		r.windows[email] = &model.OTPRequestWindow{
			Email:           email,
			Count:           1,
			WindowStartedAt: now,
			ExpiresAt:       now.Add(window),
		}
		return &repository.RateWindow{Allowed: true, Count: 1, ResetAt: now.Add(window)}, nil
	}

	resetAt := current.WindowStartedAt.Add(window)
	if current.Count >= limit {
		return &repository.RateWindow{Allowed: false, Count: current.Count, ResetAt: resetAt}, nil
	}

	current.Count++
	return &repository.RateWindow{Allowed: true, Count: current.Count, ResetAt: resetAt}, nil
}

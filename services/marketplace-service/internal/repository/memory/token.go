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

type magicLinkRepository struct {
	mu    sync.Mutex
	links map[string]*model.MagicLink
}

func NewMagicLinkRepository() repository.MagicLinkRepository {
	return &magicLinkRepository{links: map[string]*model.MagicLink{}}
}

func (r *magicLinkRepository) ReplaceForEmail(_ context.Context, link *model.MagicLink) (*model.MagicLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.JTI]; exists {
		return nil, duplicateKeyError("jti_1")
	}

	now := time.Now()
	for jti, existing := range r.links {
		if !now.Before(existing.ExpiresAt) {
			delete(r.links, jti)
			continue
		}
		if existing.Email == link.Email && !existing.Used {
			existing.Used = true
			existing.UpdatedAt = now
		}
	}

	link.ID = bson.NewObjectID()
	link.CreatedAt = now
	link.UpdatedAt = now
	link.Used = false

	stored := *link
	r.links[link.JTI] = &stored

	return link, nil
}

func (r *magicLinkRepository) GetByJTI(_ context.Context, jti string) (*model.MagicLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[jti]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	c := *link
	return &c, nil
}

func (r *magicLinkRepository) MarkUsed(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[jti]
	if !ok || link.Used {
		return false, nil
	}

	link.Used = true
	link.UpdatedAt = time.Now()
	return true, nil
}

type revokedTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewRevokedTokenRepository() repository.RevokedTokenRepository {
	return &revokedTokenRepository{tokens: map[string]time.Time{}}
}

func (r *revokedTokenRepository) Revoke(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, until := range r.tokens {
		if !now.Before(until) {
			delete(r.tokens, id)
		}
	}

	if _, ok := r.tokens[jti]; ok {
		return false, nil
	}
	r.tokens[jti] = expiresAt
	return true, nil
}

func (r *revokedTokenRepository) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tokens[jti]
	return ok, nil
}

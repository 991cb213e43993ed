package server

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository/memory"
)

type repositories struct {
	users       repository.UserRepository
	otps        repository.OTPRepository
	otpRequests repository.OTPRequestRepository
	magicLinks  repository.MagicLinkRepository
	revoked     repository.RevokedTokenRepository
	tasks       repository.TaskRepository
	reviews     repository.ReviewRepository
}

// newMongoRepositories builds every repository on db, creating indexes as it goes.
func newMongoRepositories(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) repositories {
	return repositories{
		users:       repository.NewUserMongoRepository(ctx, logger, db),
		otps:        repository.NewOTPMongoRepository(ctx, logger, db),
		otpRequests: repository.NewOTPRequestMongoRepository(ctx, logger, db),
		magicLinks:  repository.NewMagicLinkMongoRepository(ctx, logger, db),
		revoked:     repository.NewRevokedTokenMongoRepository(ctx, logger, db),
		tasks:       repository.NewTaskMongoRepository(ctx, logger, db),
		reviews:     repository.NewReviewMongoRepository(ctx, logger, db),
	}
}

// newMemoryRepositories keeps all state in process. Data is lost on restart.
func newMemoryRepositories() repositories {
	return repositories{
		users:       memory.NewUserRepository(),
		otps:        memory.NewOTPRepository(),
		otpRequests: memory.NewOTPRequestRepository(),
		magicLinks:  memory.NewMagicLinkRepository(),
		revoked:     memory.NewRevokedTokenRepository(),
		tasks:       memory.NewTaskRepository(),
		reviews:     memory.NewReviewRepository(),
	}
}

package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/messagely/internal/server/models"
)

// Repository is the data-access contract for the users table.
// Lookups of a missing username fail with common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetPasswordHash(ctx context.Context, username string) (string, error)
	UpdateLoginTimestamp(ctx context.Context, username string, at time.Time) error
	Get(ctx context.Context, username string) (*models.User, error)
	All(ctx context.Context) ([]models.UserSummary, error)
	MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error)
	MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error)
}

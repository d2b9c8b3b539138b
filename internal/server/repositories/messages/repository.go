package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/messagely/internal/server/models"
)

// Repository is the data-access contract for the messages table.
// Lookups of a missing id fail with common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	Get(ctx context.Context, id int64) (*models.MessageDetail, error)
	MarkRead(ctx context.Context, id int64, at time.Time) (*models.ReadReceipt, error)
}

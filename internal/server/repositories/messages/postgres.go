package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/dbx"
	"github.com/dmitrijs2005/messagely/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts msg and returns the stored row. A sender or recipient that
// does not exist yields common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query :=
		`INSERT INTO messages (from_username, to_username, body, sent_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, from_username, to_username, body, sent_at
		 `

	created := &models.Message{}
	err := r.db.QueryRowContext(ctx, query, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt).
		Scan(&created.ID, &created.FromUsername, &created.ToUsername, &created.Body, &created.SentAt)

	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.MessageDetail, error) {
	query :=
		`SELECT m.id, m.body, m.sent_at, m.read_at,
		        f.username, f.first_name, f.last_name, f.phone,
		        t.username, t.first_name, t.last_name, t.phone
		 FROM messages AS m
		 JOIN users AS f ON m.from_username = f.username
		 JOIN users AS t ON m.to_username = t.username
		 WHERE m.id = $1
		 `

	var (
		m      models.MessageDetail
		readAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Body, &m.SentAt, &readAt,
		&m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone,
		&m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}

	return &m, nil
}

// MarkRead stamps read_at only while it is still NULL, so repeated calls keep
// the first read time.
func (r *PostgresRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*models.ReadReceipt, error) {
	query :=
		`UPDATE messages SET read_at = COALESCE(read_at, $1)
		 WHERE id = $2
		 RETURNING id, read_at
		 `

	receipt := &models.ReadReceipt{}
	err := r.db.QueryRowContext(ctx, query, at, id).Scan(&receipt.ID, &receipt.ReadAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return receipt, nil
}

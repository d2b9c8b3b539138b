package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/server/models"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/repomanager"
)

// Notifier delivers a text out of band. Send must not block on delivery.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// NewMessageInput is the body of a send request.
type NewMessageInput struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

func (in NewMessageInput) Validate() error {
	if strings.TrimSpace(in.ToUsername) == "" {
		return fmt.Errorf("%w: to_username is required", common.ErrorBadRequest)
	}
	if strings.TrimSpace(in.Body) == "" {
		return fmt.Errorf("%w: body is required", common.ErrorBadRequest)
	}
	return nil
}

// NotificationText renders the SMS sent when a message is created.
func NotificationText(m *models.Message) string {
	return fmt.Sprintf("%s says to %s: %s", m.FromUsername, m.ToUsername, m.Body)
}

type MessageService struct {
	repomanager repomanager.RepositoryManager
	notifier    Notifier
	now         func() time.Time
}

func NewMessageService(m repomanager.RepositoryManager, n Notifier) *MessageService {
	return &MessageService{repomanager: m, notifier: n, now: time.Now}
}

// Create stores a message from the sender and hands a notification to the
// notifier. A missing recipient is ErrorNotFound.
func (s *MessageService) Create(ctx context.Context, from string, in NewMessageInput) (*models.Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	conn := s.repomanager.Conn()

	if _, err := s.repomanager.Users(conn).Get(ctx, in.ToUsername); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", in.ToUsername, err)
	}

	msg, err := s.repomanager.Messages(conn).Create(ctx, &models.Message{
		FromUsername: from,
		ToUsername:   in.ToUsername,
		Body:         in.Body,
		SentAt:       s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Send(ctx, NotificationText(msg))
	}

	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, id int64) (*models.MessageDetail, error) {
	return s.repomanager.Messages(s.repomanager.Conn()).Get(ctx, id)
}

// MarkRead sets read_at to now unless it is already set, in which case the
// first read time is returned.
func (s *MessageService) MarkRead(ctx context.Context, id int64) (*models.ReadReceipt, error) {
	return s.repomanager.Messages(s.repomanager.Conn()).MarkRead(ctx, id, s.now().UTC())
}

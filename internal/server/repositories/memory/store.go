// Package memory provides map-backed implementations of the users and
// messages repositories. They follow the same contracts as the PostgreSQL
// repositories and are used when no database DSN is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/server/models"
)

// Store holds users and messages behind one mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	messages []models.Message
	nextID   int64
}

func NewStore() *Store {
	return &Store{users: make(map[string]models.User), nextID: 1}
}

func (s *Store) Users() *UserRepository       { return &UserRepository{s: s} }
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

func (s *Store) party(username string) models.Party {
	u := s.users[username]
	return models.Party{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.Username]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.users[user.Username] = *user

	created := *user
	return &created, nil
}

func (r *UserRepository) GetPasswordHash(_ context.Context, username string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return "", common.ErrorNotFound
	}
	return u.Password, nil
}

func (r *UserRepository) UpdateLoginTimestamp(_ context.Context, username string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[username]; ok {
		u.LastLoginAt = at
		r.s.users[username] = u
	}
	return nil
}

func (r *UserRepository) Get(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Password = ""
	return &u, nil
}

func (r *UserRepository) All(_ context.Context) ([]models.UserSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.UserSummary, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, models.UserSummary{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })

	return out, nil
}

func (r *UserRepository) MessagesFrom(_ context.Context, username string) ([]models.SentMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.SentMessage, 0)
	for _, m := range r.s.messages {
		if m.FromUsername != username {
			continue
		}
		out = append(out, models.SentMessage{
			ID: m.ID, ToUser: r.s.party(m.ToUsername), Body: m.Body, SentAt: m.SentAt, ReadAt: copyTime(m.ReadAt),
		})
	}
	return out, nil
}

func (r *UserRepository) MessagesTo(_ context.Context, username string) ([]models.ReceivedMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.ReceivedMessage, 0)
	for _, m := range r.s.messages {
		if m.ToUsername != username {
			continue
		}
		out = append(out, models.ReceivedMessage{
			ID: m.ID, FromUser: r.s.party(m.FromUsername), Body: m.Body, SentAt: m.SentAt, ReadAt: copyTime(m.ReadAt),
		})
	}
	return out, nil
}

type MessageRepository struct {
	s *Store
}

func (r *MessageRepository) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[msg.FromUsername]; !ok {
		return nil, common.ErrorNotFound
	}
	if _, ok := r.s.users[msg.ToUsername]; !ok {
		return nil, common.ErrorNotFound
	}

	m := models.Message{
		ID:           r.s.nextID,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt,
	}
	r.s.nextID++
	r.s.messages = append(r.s.messages, m)

	return &m, nil
}

// find returns the index of message id; callers hold the lock.
func (r *MessageRepository) find(id int64) (int, bool) {
	for i := range r.s.messages {
		if r.s.messages[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (r *MessageRepository) Get(_ context.Context, id int64) (*models.MessageDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.find(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	m := r.s.messages[i]

	return &models.MessageDetail{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   copyTime(m.ReadAt),
		FromUser: r.s.party(m.FromUsername),
		ToUser:   r.s.party(m.ToUsername),
	}, nil
}

// MarkRead keeps the first read time, matching the PostgreSQL COALESCE.
func (r *MessageRepository) MarkRead(_ context.Context, id int64, at time.Time) (*models.ReadReceipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.find(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.s.messages[i].ReadAt == nil {
		r.s.messages[i].ReadAt = &at
	}

	return &models.ReadReceipt{ID: id, ReadAt: *r.s.messages[i].ReadAt}, nil
}

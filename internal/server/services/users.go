// Package services contains server-side business logic. This file implements
// UserService: registration, credential checks, login and the user directory
// reads.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/dbx"
	"github.com/dmitrijs2005/messagely/internal/server/auth"
	"github.com/dmitrijs2005/messagely/internal/server/config"
	"github.com/dmitrijs2005/messagely/internal/server/models"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for an unknown username and for a
// wrong password alike.
var ErrInvalidCredentials = fmt.Errorf("%w: Invalid username/password", common.ErrorUnauthorized)

// maxPasswordBytes is the longest password bcrypt will hash.
const maxPasswordBytes = 72

// RegisterInput carries the fields a new account is created from.
type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Validate reports the first missing field as ErrorBadRequest.
func (in RegisterInput) Validate() error {
	fields := []struct{ name, value string }{
		{"username", in.Username},
		{"password", in.Password},
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"phone", in.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", common.ErrorBadRequest, f.name)
		}
	}
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorBadRequest, maxPasswordBytes)
	}
	return nil
}

type UserService struct {
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	workFactor  int
	now         func() time.Time
}

func NewUserService(m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config) *UserService {
	return &UserService{
		repomanager: m,
		issuer:      issuer,
		workFactor:  cfg.BcryptWorkFactor,
		now:         time.Now,
	}
}

// Register hashes the password and stores the user with join_at and
// last_login_at both set to the registration instant.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.workFactor)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Username:    in.Username,
		Password:    string(hash),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		JoinAt:      now,
		LastLoginAt: now,
	}

	u, err := s.repomanager.Users(s.repomanager.Conn()).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Authenticate reports whether password matches the stored hash. An unknown
// username and a wrong password both yield false with a nil error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	return s.authenticate(ctx, s.repomanager.Users(s.repomanager.Conn()), username, password)
}

func (s *UserService) authenticate(ctx context.Context, repo users.Repository, username, password string) (bool, error) {
	hash, err := repo.GetPasswordHash(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// UpdateLoginTimestamp stamps last_login_at with the current instant. It does
// not check that the user exists.
func (s *UserService) UpdateLoginTimestamp(ctx context.Context, username string) error {
	return s.repomanager.Users(s.repomanager.Conn()).UpdateLoginTimestamp(ctx, username, s.now().UTC())
}

// Login verifies the credentials, stamps last_login_at in the same
// transaction and returns a session token. Every credential failure,
// including blank fields, is ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		ok, err := s.authenticate(ctx, repo, username, password)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}
		return repo.UpdateLoginTimestamp(ctx, username, s.now().UTC())
	})
	if err != nil {
		return "", err
	}

	return s.IssueToken(username)
}

func (s *UserService) IssueToken(username string) (string, error) {
	token, err := s.issuer.Issue(username)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.repomanager.Conn()).Get(ctx, username)
}

// All lists every user ordered by username.
func (s *UserService) All(ctx context.Context) ([]models.UserSummary, error) {
	return s.repomanager.Users(s.repomanager.Conn()).All(ctx)
}

func (s *UserService) MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	return s.repomanager.Users(s.repomanager.Conn()).MessagesFrom(ctx, username)
}

func (s *UserService) MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	return s.repomanager.Users(s.repomanager.Conn()).MessagesTo(ctx, username)
}

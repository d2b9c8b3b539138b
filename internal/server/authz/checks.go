package authz

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// Check decides whether a request may proceed. A non-nil error rejects it
// and should wrap one of the common sentinel errors.
type Check func(r *http.Request) error

// MessageLookup loads a message with both parties joined in.
type MessageLookup interface {
	Get(ctx context.Context, id int64) (*models.MessageDetail, error)
}

// ErrorWriter renders a rejection.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Require runs checks in order and stops at the first failure.
func Require(onError ErrorWriter, checks ...Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, check := range checks {
				if err := check(r); err != nil {
					onError(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggedIn requires an identity.
func LoggedIn() Check {
	return func(r *http.Request) error {
		if _, ok := IdentityFrom(r.Context()); !ok {
			return fmt.Errorf("%w: login required", common.ErrorUnauthorized)
		}
		return nil
	}
}

// Self requires the identity to equal the URL parameter param. It never
// touches the store, so a token for a missing user still passes when the
// names match.
func Self(param string) Check {
	return func(r *http.Request) error {
		u, ok := IdentityFrom(r.Context())
		if !ok || u != chi.URLParam(r, param) {
			return fmt.Errorf("%w: not your account", common.ErrorUnauthorized)
		}
		return nil
	}
}

// Party requires the identity to be the sender or the recipient of the
// message named by the "id" URL parameter.
func Party(messages MessageLookup) Check {
	return messageCheck(messages, func(u string, m *models.MessageDetail) bool {
		return u == m.FromUser.Username || u == m.ToUser.Username
	})
}

// Recipient requires the identity to be the message's recipient.
func Recipient(messages MessageLookup) Check {
	return messageCheck(messages, func(u string, m *models.MessageDetail) bool {
		return u == m.ToUser.Username
	})
}

// messageCheck rejects anonymous callers and bad ids before loading the
// message, and lets a failed lookup surface as is.
func messageCheck(messages MessageLookup, allowed func(string, *models.MessageDetail) bool) Check {
	return func(r *http.Request) error {
		u, ok := IdentityFrom(r.Context())
		if !ok {
			return fmt.Errorf("%w: login required", common.ErrorUnauthorized)
		}

		id, err := MessageID(r)
		if err != nil {
			return err
		}

		m, err := messages.Get(r.Context(), id)
		if err != nil {
			return err
		}

		if !allowed(u, m) {
			return fmt.Errorf("%w: cannot access this message", common.ErrorUnauthorized)
		}
		return nil
	}
}

// MessageID parses the "id" URL parameter as a positive integer.
func MessageID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid message id %q", common.ErrorBadRequest, raw)
	}
	return id, nil
}

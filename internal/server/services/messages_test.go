package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Send(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func newMessageFixture(t *testing.T) (*MessageService, *recordingNotifier) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	us := newUserService(t, rm)
	for _, name := range []string{"test1", "test2"} {
		_, err := us.Register(context.Background(), registerInput(name))
		require.NoError(t, err)
	}

	n := &recordingNotifier{}
	ms := NewMessageService(rm, n)
	ms.now = func() time.Time { return fixedNow }
	return ms, n
}

func TestMessageService_Create(t *testing.T) {
	ms, n := newMessageFixture(t)
	ctx := context.Background()

	msg, err := ms.Create(ctx, "test1", NewMessageInput{ToUsername: "test2", Body: "hello world!"})
	require.NoError(t, err)

	assert.Positive(t, msg.ID)
	assert.Equal(t, "test1", msg.FromUsername)
	assert.Equal(t, "test2", msg.ToUsername)
	assert.Equal(t, fixedNow, msg.SentAt)
	assert.Nil(t, msg.ReadAt)
	assert.Equal(t, []string{"test1 says to test2: hello world!"}, n.texts)
}

func TestMessageService_Create_Errors(t *testing.T) {
	ms, n := newMessageFixture(t)
	ctx := context.Background()

	_, err := ms.Create(ctx, "test1", NewMessageInput{Body: "hi"})
	assert.ErrorIs(t, err, common.ErrorBadRequest)

	_, err = ms.Create(ctx, "test1", NewMessageInput{ToUsername: "test2"})
	assert.ErrorIs(t, err, common.ErrorBadRequest)

	_, err = ms.Create(ctx, "test1", NewMessageInput{ToUsername: "ghost", Body: "hi"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.Empty(t, n.texts)
}

func TestMessageService_GetAndMarkRead(t *testing.T) {
	ms, _ := newMessageFixture(t)
	ctx := context.Background()

	msg, err := ms.Create(ctx, "test1", NewMessageInput{ToUsername: "test2", Body: "hello world!"})
	require.NoError(t, err)

	d, err := ms.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", d.Body)
	assert.Equal(t, "test1", d.FromUser.Username)
	assert.Equal(t, "test2", d.ToUser.Username)
	assert.Nil(t, d.ReadAt)

	first, err := ms.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, first.ReadAt)

	ms.now = func() time.Time { return fixedNow.Add(time.Minute) }
	second, err := ms.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReadAt, second.ReadAt)

	d, err = ms.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, d.ReadAt)
	assert.Equal(t, fixedNow, *d.ReadAt)

	_, err = ms.Get(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = ms.MarkRead(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestNotificationText(t *testing.T) {
	ms, _ := newMessageFixture(t)
	ms.notifier = nil

	msg, err := ms.Create(context.Background(), "test2", NewMessageInput{ToUsername: "test1", Body: "yo"})
	require.NoError(t, err)
	assert.Equal(t, "test2 says to test1: yo", NotificationText(msg))
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/messagely/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
	block chan struct{}
}

func (f *fakeSender) Notify(ctx context.Context, text string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

type recordingLogger struct {
	logging.Nop
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) With(...any) logging.Logger { return l }

func TestDispatcher_Send(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, time.Second, logging.Nop{})

	d.Send(context.Background(), "a")
	d.Send(context.Background(), "b")
	require.NoError(t, d.Wait(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b"}, s.texts)
}

func TestDispatcher_OutlivesCallerContext(t *testing.T) {
	s := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(s, time.Second, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	d.Send(ctx, "hello")
	cancel()
	close(s.block)

	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, []string{"hello"}, s.texts)
}

func TestDispatcher_LogsFailures(t *testing.T) {
	l := &recordingLogger{}
	d := NewDispatcher(&fakeSender{err: errors.New("provider down")}, time.Second, l)

	d.Send(context.Background(), "x")
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, []string{"notification failed"}, l.errors)
}

func TestDispatcher_Timeout(t *testing.T) {
	l := &recordingLogger{}
	s := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(s, 10*time.Millisecond, l)

	d.Send(context.Background(), "slow")
	require.NoError(t, d.Wait(context.Background()))

	assert.Empty(t, s.texts)
	assert.Len(t, l.errors, 1)
}

func TestDispatcher_WaitHonoursContext(t *testing.T) {
	s := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(s, 0, logging.Nop{})
	d.Send(context.Background(), "stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(s.block)
	require.NoError(t, d.Wait(context.Background()))
}

type fakeCreator struct {
	params *openapi.CreateMessageParams
	err    error
	block  chan struct{}
}

func (f *fakeCreator) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSender_Notify(t *testing.T) {
	c := &fakeCreator{}
	s := &TwilioSender{api: c, from: "+15550001", to: "+15550002"}

	require.NoError(t, s.Notify(context.Background(), "test1 says to test2: hi"))

	require.NotNil(t, c.params)
	assert.Equal(t, "+15550002", *c.params.To)
	assert.Equal(t, "+15550001", *c.params.From)
	assert.Equal(t, "test1 says to test2: hi", *c.params.Body)
}

func TestTwilioSender_Errors(t *testing.T) {
	s := &TwilioSender{api: &fakeCreator{err: errors.New("20003 auth")}}
	err := s.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20003 auth")

	block := make(chan struct{})
	defer close(block)
	s = &TwilioSender{api: &fakeCreator{block: block}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Notify(ctx, "x"), context.Canceled)
}

func TestNewTwilioSender(t *testing.T) {
	s := NewTwilioSender("AC123", "token", "+1", "+2")
	assert.NotNil(t, s.api)
	assert.Equal(t, "+1", s.from)
	assert.Equal(t, "+2", s.to)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(logging.Nop{}).Notify(context.Background(), "x"))
}

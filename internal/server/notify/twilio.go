package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the subset of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender delivers notifications as SMS through Twilio.
type TwilioSender struct {
	api  messageCreator
	from string
	to   string
}

func NewTwilioSender(accountSID, authToken, from, to string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from, to: to}
}

// Notify sends text as one SMS. The Twilio client is not context-aware, so a
// cancelled ctx abandons the wait but not the HTTP call.
func (s *TwilioSender) Notify(ctx context.Context, text string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(s.to)
	params.SetFrom(s.from)
	params.SetBody(text)

	type result struct {
		msg *openapi.ApiV2010Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := s.api.CreateMessage(params)
		ch <- result{msg, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("twilio create message: %w", r.err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("twilio create message: %w", ctx.Err())
	}
}

package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

type fakeSES struct {
	got *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	id := "ses-msg-1"
	return &sesv2.SendEmailOutput{MessageId: &id}, nil
}

type fakeResolver struct {
	emails map[string]string
}

func (f fakeResolver) Email(_ context.Context, leadID string) (string, error) {
	addr, ok := f.emails[leadID]
	if !ok {
		return "", errors.New("unknown lead")
	}
	return addr, nil
}

func testSender(api sesAPI) *SESSender {
	return &SESSender{
		client:    api,
		resolver:  fakeResolver{emails: map[string]string{"lead-1": "pat@example.com"}},
		fromEmail: "outreach@ignite.io",
		fromName:  "IGNITE Outreach",
		log:       logger.Component("ses"),
	}
}

func TestSend_BuildsSESInput(t *testing.T) {
	api := &fakeSES{}
	s := testSender(api)

	err := s.Send(context.Background(), "lead-1", domain.Message{Subject: "Hello", Body: "Short note."})
	require.NoError(t, err)

	require.NotNil(t, api.got)
	assert.Equal(t, "IGNITE Outreach <outreach@ignite.io>", *api.got.FromEmailAddress)
	assert.Equal(t, []string{"pat@example.com"}, api.got.Destination.ToAddresses)
	assert.Equal(t, "Hello", *api.got.Content.Simple.Subject.Data)
	assert.Equal(t, "Short note.", *api.got.Content.Simple.Body.Text.Data)
	require.Len(t, api.got.EmailTags, 1)
	assert.Equal(t, "lead-1", *api.got.EmailTags[0].Value)
}

func TestSend_UnknownLeadFailsBeforeTransport(t *testing.T) {
	api := &fakeSES{}
	s := testSender(api)

	err := s.Send(context.Background(), "lead-unknown", domain.Message{Subject: "x", Body: "y"})
	assert.Error(t, err)
	assert.Nil(t, api.got, "transport must not be called without a recipient")
}

func TestSend_TransportErrorSurfaces(t *testing.T) {
	api := &fakeSES{err: errors.New("throttling: max send rate exceeded")}
	s := testSender(api)

	err := s.Send(context.Background(), "lead-1", domain.Message{Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "ses send")
}

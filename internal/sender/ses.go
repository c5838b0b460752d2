// Package sender holds the outbound transport adapters behind the dispatch
// loop's Sender interface. Only SES is wired; the adapter shape leaves room
// for additional providers without touching dispatch.
package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// RecipientResolver maps an opaque lead reference to a deliverable address.
// The lead store implements it; the engine itself never persists addresses.
type RecipientResolver interface {
	Email(ctx context.Context, leadID string) (string, error)
}

// sesAPI is the slice of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers outreach messages through AWS SES v2.
type SESSender struct {
	client    sesAPI
	resolver  RecipientResolver
	fromEmail string
	fromName  string
	log       logger.ComponentLogger
}

// NewSESSender builds the SES client. Static credentials take precedence;
// with none provided the default AWS credential chain applies.
func NewSESSender(ctx context.Context, accessKey, secretKey, region, fromEmail, fromName string, resolver RecipientResolver) (*SESSender, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{
		client:    sesv2.NewFromConfig(cfg),
		resolver:  resolver,
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       logger.Component("ses"),
	}, nil
}

// Send resolves the lead's address and delivers one message.
func (s *SESSender) Send(ctx context.Context, leadID string, msg domain.Message) error {
	to, err := s.resolver.Email(ctx, leadID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("lead_ref"), Value: aws.String(leadID)},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.log.Warn("send failed", "lead_ref", leadID, "error", err.Error())
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.log.Info("sent", "to", to, "message_id", messageID, "at", time.Now().UTC().Format(time.RFC3339))
	return nil
}

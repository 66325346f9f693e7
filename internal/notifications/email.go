package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// EmailSender is the outbound mail contract. The SES adapter is the only
// production implementation; tests substitute a mock.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// logSender is used when outbound email is disabled; it records the send as
// a log line so local environments stay quiet.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) EmailSender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email suppressed (sending disabled)",
		zap.String("to", to), zap.String("subject", subject))
	return nil
}

type sesSender struct {
	client *sesv2.Client
	from   string
}

func NewSESSender(ctx context.Context, region, from string) (EmailSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &sesSender{
		client: sesv2.NewFromConfig(awsCfg),
		from:   from,
	}, nil
}

func (s *sesSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	return nil
}

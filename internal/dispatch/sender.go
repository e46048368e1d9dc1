// Package dispatch sends finished drafts to their recipient lists
// through AWS SES v2.
package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/bottler-outreach/internal/config"
)

// Sender delivers draft emails through SES.
type Sender struct {
	client    sesAPI
	fromEmail string
	fromName  string
}

// sesAPI is the slice of the SES client the sender uses; tests swap in
// a fake.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// DispatchError wraps a send failure for one group.
type DispatchError struct {
	Group string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for group %q: %v", e.Group, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewSender creates an SES-backed sender with static credentials.
func NewSender(ctx context.Context, cfg appconfig.SESConfig) (*Sender, error) {
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("dispatch: from_email is required")
	}

	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Sender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send delivers one draft to a group's recipient list. Recipients must
// be validated before this point; an empty list is an error, not a
// silent no-op.
func (s *Sender) Send(ctx context.Context, group, subject, htmlBody string, recipients []string) (string, error) {
	if len(recipients) == 0 {
		return "", &DispatchError{Group: group, Err: fmt.Errorf("no recipients configured")}
	}
	if subject == "" || htmlBody == "" {
		return "", &DispatchError{Group: group, Err: fmt.Errorf("draft is not ready")}
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", &DispatchError{Group: group, Err: err}
	}

	messageID := aws.ToString(output.MessageId)
	log.Printf("[dispatch] Sent draft for group %q to %d recipients (message %s)", group, len(recipients), messageID)
	return messageID, nil
}

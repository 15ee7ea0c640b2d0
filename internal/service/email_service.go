package service

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"readquest/internal/logger"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			appBaseURL: appBaseURL,
			enabled:    false,
			debug:      debug,
		}, nil
	}

	if debug {
		logger.Debug("initializing email service", "region", awsRegion, "from", fromEmail, "from_name", fromName, "base_url", appBaseURL)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)

	logger.Info("email service enabled", "from", fromEmail, "region", awsRegion)

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// InvitationLink is the page a student opens to accept an invitation
func (s *EmailService) InvitationLink(code string) string {
	return fmt.Sprintf("%s/invitations/accept?code=%s", s.appBaseURL, url.QueryEscape(code))
}

// SendInvitationEmail tells a student that a parent or teacher wants to
// follow their reading progress.
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, code, relationshipType string) error {
	if s.debug {
		logger.Debug("SendInvitationEmail called", "to", toEmail, "code", code, "type", relationshipType)
	}

	if !s.enabled {
		logger.Info("skipping email send (service disabled)", "kind", "invitation", "to", toEmail)
		return nil
	}

	subject, htmlBody, textBody := s.invitationContent(code, relationshipType)
	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) invitationContent(code, relationshipType string) (subject, htmlBody, textBody string) {
	link := s.InvitationLink(code)
	subject = "You've been invited to share your ReadQuest progress"

	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e8b57; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { font-size: 24px; font-weight: bold; letter-spacing: 2px; text-align: center; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e8b57; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Reading Progress Invitation</h1>
		</div>
		<div class="content">
			<p>Hi there,</p>
			<p>Your %s would like to follow your reading quizzes on ReadQuest.</p>
			<p>Your invitation code is:</p>
			<p class="code">%s</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Review Invitation</a>
			</p>
			<p>If you don't recognise this request, you can simply decline it.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from ReadQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(relationshipType), html.EscapeString(code), html.EscapeString(link))

	textBody = fmt.Sprintf(`Hi there,

Your %s would like to follow your reading quizzes on ReadQuest.

Your invitation code is: %s

Review the invitation here:
%s

If you don't recognise this request, you can simply decline it.

---
This is an automated email from ReadQuest. Please do not reply.
`, relationshipType, code, link)

	return subject, htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
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
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		logger.Debug("SES accepted message", "message_id", *result.MessageId)
	}

	logger.Info("email sent", "to", toEmail, "subject", subject)
	return nil
}

package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	"intan/internal/models"
)

// sesAPI is the subset of the SES v2 client used to send mail
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     logrus.FieldLogger
}

// NewEmailService creates a new email service. An empty fromEmail yields a disabled service.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger logrus.FieldLogger) (*EmailService, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if fromEmail == "" {
		logger.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"from":   fromEmail,
		"region": awsRegion,
	}).Info("Email service enabled")

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail greets a newly registered learner
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.logger.WithField("to", toEmail).Debug("Skipping welcome email (service disabled)")
		return nil
	}

	name := html.EscapeString(toName)
	subject := "Welcome to Intan Fractions!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f28c28; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #fff8f0; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #f28c28; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome, %s!</h1>
		</div>
		<div class="content">
			<p>Your fraction adventure is ready. There are three steps waiting for you:</p>
			<ul>
				<li>Pizza Fractions</li>
				<li>Hexagon Shading</li>
				<li>Fraction Ninja</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s" class="button">Start Playing</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Intan Fractions. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, name, s.appBaseURL)

	textBody := fmt.Sprintf(`Welcome, %s!

Your fraction adventure is ready. There are three steps waiting for you:
- Pizza Fractions
- Hexagon Shading
- Fraction Ninja

Start playing: %s

---
This is an automated email from Intan Fractions. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendAllCompleteEmail congratulates a learner who finished every step
func (s *EmailService) SendAllCompleteEmail(ctx context.Context, toEmail, toName string, totalScore int) error {
	if !s.enabled {
		s.logger.WithField("to", toEmail).Debug("Skipping achievement email (service disabled)")
		return nil
	}

	name := html.EscapeString(toName)
	maxScore := len(models.Steps) * models.MaxStepScore
	subject := "You finished every step!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e9e5b; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f3fbf6; padding: 30px; border-radius: 0 0 5px 5px; }
		.score { font-size: 32px; font-weight: bold; text-align: center; color: #2e9e5b; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Great job, %s!</h1>
		</div>
		<div class="content">
			<p>You completed all three fraction steps and earned the <strong>All Complete</strong> badge.</p>
			<p class="score">%d / %d</p>
			<p>Play again any time to chase a perfect score: <a href="%s">%s</a></p>
		</div>
		<div class="footer">
			<p>This is an automated email from Intan Fractions. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, name, totalScore, maxScore, s.appBaseURL, s.appBaseURL)

	textBody := fmt.Sprintf(`Great job, %s!

You completed all three fraction steps and earned the All Complete badge.
Total score: %d / %d

Play again any time to chase a perfect score: %s

---
This is an automated email from Intan Fractions. Please do not reply.
`, toName, totalScore, maxScore, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
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

	entry := s.logger.WithFields(logrus.Fields{"to": toEmail, "subject": subject})
	if result.MessageId != nil {
		entry = entry.WithField("message_id", *result.MessageId)
	}
	entry.Info("Email sent successfully")
	return nil
}

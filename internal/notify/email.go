package notify

import (
	"context"
	"fmt"

	"nurse-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       *zap.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, log *zap.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log.With(zap.String("notifier", "sendgrid")),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.log.Error("SendGrid returned error status",
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body),
		)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.log.Debug("Email sent", zap.String("subject", msg.Subject), zap.Int("status", response.StatusCode))
	return nil
}

// Directory resolves a user's contact details.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type emailDispatcher struct {
	sender EmailSender
	users  Directory
	log    *zap.Logger
}

// NewEmailDispatcher mails the party who has to act next. Events nobody
// needs to be told about by mail are ignored.
func NewEmailDispatcher(sender EmailSender, users Directory, log *zap.Logger) Dispatcher {
	return &emailDispatcher{sender: sender, users: users, log: log.With(zap.String("notifier", "email"))}
}

func (d *emailDispatcher) Dispatch(ctx context.Context, event Event) error {
	recipient, subject, body, ok := compose(event)
	if !ok {
		return nil
	}

	user, err := d.users.FindByID(ctx, recipient)
	if err != nil {
		return fmt.Errorf("lookup recipient %s: %w", recipient, err)
	}
	if user == nil || user.Email == "" {
		d.log.Warn("Recipient has no email address",
			zap.String("user_id", recipient.String()),
			zap.String("type", string(event.Type)),
		)
		return nil
	}

	err = d.sender.Send(ctx, EmailMessage{
		To:      user.Email,
		ToName:  user.FullName,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("email %s for booking %s: %w", event.Type, event.BookingCode, err)
	}
	return nil
}

func compose(event Event) (uuid.UUID, string, string, bool) {
	switch event.Type {
	case EventBookingCreated:
		return event.ProviderID,
			fmt.Sprintf("New booking request %s", event.BookingCode),
			fmt.Sprintf("A patient has requested booking %s. Open the app to accept or decline it.", event.BookingCode),
			true
	case EventBookingAccepted:
		return event.PatientID,
			fmt.Sprintf("Booking %s confirmed", event.BookingCode),
			fmt.Sprintf("Your booking %s has been accepted by the provider.", event.BookingCode),
			true
	case EventArrivalMarked:
		body := fmt.Sprintf("Your provider has arrived for booking %s. Please confirm the arrival in the app.", event.BookingCode)
		if event.ArrivalExpiresAt != nil {
			body += fmt.Sprintf(" Confirmation is open until %s UTC.", event.ArrivalExpiresAt.UTC().Format("15:04:05"))
		}
		return event.PatientID, fmt.Sprintf("Provider arrived for %s", event.BookingCode), body, true
	case EventBookingCancelled:
		recipient := event.ProviderID
		if event.ActorRole.IsProvider() {
			recipient = event.PatientID
		}
		return recipient,
			fmt.Sprintf("Booking %s cancelled", event.BookingCode),
			fmt.Sprintf("Booking %s has been cancelled.", event.BookingCode),
			true
	case EventBookingCompleted:
		body := fmt.Sprintf("Booking %s is complete.", event.BookingCode)
		if event.ActualDuration != nil && event.ActualCost != nil {
			body += fmt.Sprintf(" Duration: %d minutes. Total: %.0f.", *event.ActualDuration, *event.ActualCost)
		}
		return event.PatientID, fmt.Sprintf("Booking %s completed", event.BookingCode), body, true
	}
	return uuid.Nil, "", "", false
}

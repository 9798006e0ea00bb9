package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/parentmeet/parentmeet/internal/model"
)

// EmailSender отправляет письма через SendGrid
type EmailSender struct {
	client   *sendgrid.Client
	fromAddr string
	fromName string
}

func NewEmailSender(apiKey, fromAddr, fromName string) *EmailSender {
	return &EmailSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// Send отправляет одно уведомление. Контент уже отрендерен при создании
// outbox-записи.
func (s *EmailSender) Send(ctx context.Context, n *model.Notification) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail(n.RecipientName, n.RecipientEmail)
	message := mail.NewSingleEmail(from, n.Subject, to, n.Content, n.Content)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// goMailTransport delivers through go-mail. STARTTLS attempts require the
// upgrade (TLSMandatory); ssl attempts open an implicit TLS connection.
type goMailTransport struct {
	user     string
	password string
}

func (t *goMailTransport) Send(ctx context.Context, a Attempt, email Email) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(email.FromName, email.FromAddr); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)

	opts := []mail.Option{
		mail.WithPort(a.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.user),
		mail.WithPassword(t.password),
	}
	if a.Mode == ModeSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(a.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

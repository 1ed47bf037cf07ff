package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sheshasaibaba/taxbynav-backend/internal/config"
)

// Mailer sends plain-text booking notifications over SMTP. All sends are
// best-effort; callers decide whether a failure matters.
type Mailer struct {
	cfg config.SMTPConfig
	// send is swapped in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) SendBookingConfirmation(to, name string, slotStart time.Time, duration time.Duration, message string) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s,\r\n\r\n", greeting)
	fmt.Fprintf(&body, "Your %d-minute appointment is confirmed for %s (UTC).\r\n",
		int(duration.Minutes()), slotStart.UTC().Format("Monday, 2 January 2006 at 15:04"))
	if message != "" {
		fmt.Fprintf(&body, "\r\nYour note: %s\r\n", message)
	}
	fmt.Fprintf(&body, "\r\n%s\r\n", m.cfg.FromName)

	return m.sendMail(to, "Appointment confirmed", body.String())
}

func (m *Mailer) SendAdminNotification(adminEmail, userEmail, userName string, slotStart time.Time, duration time.Duration, message string) error {
	var body strings.Builder
	fmt.Fprintf(&body, "New booking:\r\n\r\n")
	fmt.Fprintf(&body, "Client: %s <%s>\r\n", userName, userEmail)
	fmt.Fprintf(&body, "Slot: %s (UTC), %d minutes\r\n",
		slotStart.UTC().Format("Monday, 2 January 2006 at 15:04"), int(duration.Minutes()))
	if message != "" {
		fmt.Fprintf(&body, "Note: %s\r\n", message)
	}

	return m.sendMail(adminEmail, "New appointment booked", body.String())
}

func (m *Mailer) sendMail(to, subject, body string) error {
	if !m.cfg.Enabled() {
		return nil
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}

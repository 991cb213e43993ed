package mailer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Supported delivery services.
const (
	ServiceConsole  = "console"
	ServiceSMTP     = "smtp"
	ServiceResend   = "resend"
	ServiceSendGrid = "sendgrid"
)

// Sender delivers a single email.
type Sender interface {
	Send(email Email) error
}

// Email represents an email message.
type Email struct {
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	Body     string
	HTMLBody string
}

// Config holds the delivery settings read from the environment.
type Config struct {
	Service  string `env:"EMAIL_SERVICE" envDefault:"console"`
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"     envDefault:"587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"     envDefault:"SkillLance <no-reply@skilllance.app>"`
}

// Mailer represents an SMTP email sender.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// New returns the Sender selected by cfg.Service. An invalid SMTP configuration is fatal.
func New(logger *zerolog.Logger, cfg Config) Sender {
	if strings.EqualFold(cfg.Service, ServiceConsole) || cfg.Service == "" {
		return NewConsoleMailer(logger)
	}

	cfg = cfg.withRelayDefaults()
	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Str("service", cfg.Service).Msg("failed to validate Mailer configuration")
	}

	return NewMailer(cfg)
}

// NewMailer creates an SMTP Mailer for an already validated configuration.
func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", email.To...)

	if len(email.Cc) > 0 {
		msg.SetHeader("Cc", email.Cc...)
	}

	if len(email.Bcc) > 0 {
		msg.SetHeader("Bcc", email.Bcc...)
	}

	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
}

// withRelayDefaults fills in the SMTP relay endpoints of hosted providers. For those
// providers SMTP_PASS carries the API key.
func (c Config) withRelayDefaults() Config {
	switch strings.ToLower(c.Service) {
	case ServiceResend:
		if c.Host == "" {
			c.Host = "smtp.resend.com"
		}
		if c.Username == "" {
			c.Username = "resend"
		}
	case ServiceSendGrid:
		if c.Host == "" {
			c.Host = "smtp.sendgrid.net"
		}
		if c.Username == "" {
			c.Username = "apikey"
		}
	}

	return c
}

// validate checks if the Mailer configuration is valid.
func (c Config) validate() error {
	switch strings.ToLower(c.Service) {
	case ServiceSMTP, ServiceResend, ServiceSendGrid:
	default:
		return fmt.Errorf("unsupported EMAIL_SERVICE %q", c.Service)
	}
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USER environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASS environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}

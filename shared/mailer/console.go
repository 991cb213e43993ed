package mailer

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ConsoleMailer writes emails to the log instead of delivering them.
type ConsoleMailer struct {
	logger zerolog.Logger
}

func NewConsoleMailer(logger *zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{
		logger: logger.With().Str("component", "console-mailer").Logger(),
	}
}

func (m *ConsoleMailer) Send(email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	body := email.Body
	if body == "" {
		body = email.HTMLBody
	}

	m.logger.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Str("body", body).
		Msg("email not delivered, console mailer in use")

	return nil
}

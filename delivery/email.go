package delivery

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"ticketbot/models"
)

// Emailer sends an email copy of text reports through SendGrid. Optional;
// enabled only when API key and address are configured.
type Emailer struct {
	apiKey  string
	address string
	log     *zap.SugaredLogger
}

func NewEmailer(apiKey, address string, log *zap.SugaredLogger) *Emailer {
	return &Emailer{apiKey: apiKey, address: address, log: log}
}

// Send emails the artifact. Best effort alongside the channel delivery.
func (e *Emailer) Send(artifact models.TextArtifact) error {
	// Discord markdown doesn't belong in a plain-text email.
	body := strings.NewReplacer("**", "", "```", "").Replace(artifact.Description)

	from := mail.NewEmail("TicketBot", e.address)
	to := mail.NewEmail("Officers", e.address)
	message := mail.NewSingleEmail(from, artifact.Title, to, body, body)

	client := sendgrid.NewSendClient(e.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	if resp.StatusCode >= 400 {
		return errors.Wrapf(ErrDeliveryFailed, "sendgrid returned status %d", resp.StatusCode)
	}

	e.log.Infow("report emailed", "to", e.address, "status", resp.StatusCode)
	return nil
}

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ticketbot/models"
)

const embedColor = 0x7F8C8D

// DiscordWebhook delivers artifacts to a channel through a Discord webhook.
type DiscordWebhook struct {
	url    string
	client *http.Client
	log    *zap.SugaredLogger
}

func NewDiscordWebhook(url string, log *zap.SugaredLogger) *DiscordWebhook {
	return &DiscordWebhook{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Ready resolves the webhook. Discord answers GET on a webhook URL with its
// metadata when it exists.
func (d *DiscordWebhook) Ready(ctx context.Context) error {
	if d.url == "" {
		return errors.Wrap(ErrChannelUnresolvable, "webhook URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Wrapf(ErrChannelUnresolvable, "webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SendFile uploads the chart image as an attachment.
func (d *DiscordWebhook) SendFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open chart file"), ErrDeliveryFailed)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	if _, err := io.Copy(part, f); err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	if err := writer.Close(); err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}

	return d.post(ctx, writer.FormDataContentType(), &body)
}

// SendText posts the artifact as an embed-style message.
func (d *DiscordWebhook) SendText(ctx context.Context, artifact models.TextArtifact) error {
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       artifact.Title,
				"description": artifact.Description,
				"color":       embedColor,
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}

	return d.post(ctx, "application/json", bytes.NewReader(data))
}

func (d *DiscordWebhook) post(ctx context.Context, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Mark(err, ErrDeliveryFailed)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrChannelUnresolvable, "webhook returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.Wrapf(ErrDeliveryFailed, "webhook returned status %d", resp.StatusCode)
	}

	d.log.Infow("artifact delivered", "status", resp.StatusCode)
	return nil
}

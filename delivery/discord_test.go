package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ticketbot/models"
)

type capturedRequest struct {
	contentType string
	body        []byte
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestSendTextPostsEmbed(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusNoContent)
	sink := NewDiscordWebhook(server.URL, zaptest.NewLogger(t).Sugar())

	artifact := models.TextArtifact{Title: "Awakening Fear Missed Tickets Report", Description: "Perfect!"}
	require.NoError(t, sink.SendText(context.Background(), artifact))

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "application/json", req.contentType)

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Color       int    `json:"color"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, artifact.Title, payload.Embeds[0].Title)
	assert.Equal(t, "Perfect!", payload.Embeds[0].Description)
	assert.Equal(t, embedColor, payload.Embeds[0].Color)
}

func TestSendFileUploadsAttachment(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	sink := NewDiscordWebhook(server.URL, zaptest.NewLogger(t).Sugar())

	path := filepath.Join(t.TempDir(), "tickets.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	require.NoError(t, sink.SendFile(context.Background(), path))

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.True(t, strings.HasPrefix(req.contentType, "multipart/form-data"))
	assert.Contains(t, string(req.body), `filename="tickets.png"`)
	assert.Contains(t, string(req.body), "png-bytes")
}

func TestSendMissingChannel(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusNotFound)
	sink := NewDiscordWebhook(server.URL, zaptest.NewLogger(t).Sugar())

	err := sink.SendText(context.Background(), models.TextArtifact{Title: "t"})
	assert.True(t, errors.Is(err, ErrChannelUnresolvable))
}

func TestSendServerError(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusInternalServerError)
	sink := NewDiscordWebhook(server.URL, zaptest.NewLogger(t).Sugar())

	err := sink.SendText(context.Background(), models.TextArtifact{Title: "t"})
	assert.True(t, errors.Is(err, ErrDeliveryFailed))
	assert.False(t, errors.Is(err, ErrChannelUnresolvable))
}

func TestSendTransportFailure(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusOK)
	url := server.URL
	server.Close()

	sink := NewDiscordWebhook(url, zaptest.NewLogger(t).Sugar())
	err := sink.SendText(context.Background(), models.TextArtifact{Title: "t"})
	assert.True(t, errors.Is(err, ErrDeliveryFailed))
}

func TestReady(t *testing.T) {
	okServer, _ := newCaptureServer(t, http.StatusOK)
	sink := NewDiscordWebhook(okServer.URL, zaptest.NewLogger(t).Sugar())
	assert.NoError(t, sink.Ready(context.Background()))

	missingServer, _ := newCaptureServer(t, http.StatusNotFound)
	sink = NewDiscordWebhook(missingServer.URL, zaptest.NewLogger(t).Sugar())
	assert.True(t, errors.Is(sink.Ready(context.Background()), ErrChannelUnresolvable))

	sink = NewDiscordWebhook("", zaptest.NewLogger(t).Sugar())
	assert.True(t, errors.Is(sink.Ready(context.Background()), ErrChannelUnresolvable))
}

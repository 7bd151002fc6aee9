// Package notify publica recordatorios en webhooks de Discord.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DiscordNotifier envía mensajes de texto a un webhook de Discord.
type DiscordNotifier struct {
	httpClient *http.Client
}

// NewDiscordNotifier crea el notificador; client nil usa uno con timeout de 10 s.
func NewDiscordNotifier(client *http.Client) *DiscordNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordNotifier{httpClient: client}
}

type discordPayload struct {
	Content string `json:"content"`
}

// SendReminder publica message en webhookURL. Cualquier respuesta fuera de 2xx es error.
func (n *DiscordNotifier) SendReminder(ctx context.Context, webhookURL, message string) error {
	body, err := json.Marshal(discordPayload{Content: message})
	if err != nil {
		return fmt.Errorf("discord: serializar: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord: webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook failed: %s", resp.Status)
	}
	return nil
}

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// DiscordAPI базовый адрес Discord REST API
const DiscordAPI = "https://discord.com/api/v10"

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Discord публикует сообщения в канал от имени бота
type Discord struct {
	baseURL   string
	token     string
	channelID string
	client    *http.Client
}

// NewDiscord создает клиента. baseURL пустой для DiscordAPI.
func NewDiscord(token, channelID, baseURL string) *Discord {
	if baseURL == "" {
		baseURL = DiscordAPI
	}
	return &Discord{baseURL: baseURL, token: token, channelID: channelID, client: &http.Client{}}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, message string) error {
	body, err := sonic.Marshal(discordMessage{
		Embeds: []discordEmbed{{Title: "A new trade!", Description: message}},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/channels/%s/messages", d.baseURL, d.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки в Discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord ответил %d: %s", resp.StatusCode, text)
	}
	return nil
}

package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		telemetry.Warnf("discord: rate limited")
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}

	return nil
}

const (
	ColorGreen  = 0x2ECC71
	ColorRed    = 0xE74C3C
	ColorYellow = 0xF1C40F
)

// SignalAlert posts a divergence signal as an embed. Positive edge is
// green (model above the market), negative is red.
func (n *Notifier) SignalAlert(ctx context.Context, sig models.Signal) error {
	color := ColorGreen
	if sig.Edge < 0 {
		color = ColorRed
	}

	return n.SendEmbed(ctx, Embed{
		Title:       fmt.Sprintf("Signal — %s (%s)", sig.SignalType, sig.Strength),
		Description: sig.Reason,
		Color:       color,
		Fields: []Field{
			{Name: "Market", Value: sig.MarketConditionID, Inline: true},
			{Name: "Match", Value: fmt.Sprintf("%d", sig.MatchID), Inline: true},
			{Name: "Model", Value: fmt.Sprintf("%.1f%%", sig.TeamAWinProb*100), Inline: true},
			{Name: "Polymarket", Value: fmt.Sprintf("%.1f%%", sig.MarketTeamAOdds*100), Inline: true},
			{Name: "Edge", Value: fmt.Sprintf("%+.1f%%", sig.Edge*100), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%.2f", sig.Confidence), Inline: true},
		},
	})
}

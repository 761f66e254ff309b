// Package motivation produces a short encouraging message for the stats and
// today screens.
package motivation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/models"
)

const (
	SourceStatic    = "static"
	SourceAnthropic = "anthropic"
)

type Message struct {
	Text   string
	Source string
}

type Provider interface {
	Message(ctx context.Context, st models.UserStats) (Message, error)
}

// Static picks a curated message by streak length
type Static struct{}

var tiers = []struct {
	minStreak int
	text      string
}{
	{30, "A month of complete days. Guard what you have built."},
	{7, "A full week without a gap. Keep the rhythm."},
	{3, "Three days and counting. Consistency is forming."},
	{1, "Yesterday was complete. Make today the same."},
	{0, "Every prayer is a fresh start. Begin with the next one."},
}

func (Static) Message(_ context.Context, st models.UserStats) (Message, error) {
	for _, tier := range tiers {
		if st.Streak >= tier.minStreak {
			return Message{Text: tier.text, Source: SourceStatic}, nil
		}
	}
	return Message{Text: tiers[len(tiers)-1].text, Source: SourceStatic}, nil
}

// Anthropic asks a Claude model for a message and falls back to Static on any error.
type Anthropic struct {
	client   anthropic.Client
	model    string
	timeout  time.Duration
	fallback Provider
}

func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}, opts...)
	return &Anthropic{
		client:   anthropic.NewClient(opts...),
		model:    model,
		timeout:  10 * time.Second,
		fallback: Static{},
	}
}

// New returns the Anthropic provider when apiKey is set, Static otherwise.
func New(apiKey, model string) Provider {
	if apiKey == "" {
		return Static{}
	}
	return NewAnthropic(apiKey, model)
}

func prompt(st models.UserStats) string {
	last := st.LastCompletedDate
	if last == "" {
		last = "never"
	}
	return fmt.Sprintf(
		"Write one short, warm sentence (under 25 words) encouraging a Muslim to keep up their five daily prayers. "+
			"Current streak of complete days: %d. On-time ratio: %.0f%%. Last complete day: %s. "+
			"Reply with the sentence only.",
		st.Streak, st.OnTimeRatio*100, last)
}

func (a *Anthropic) Message(ctx context.Context, st models.UserStats) (Message, error) {
	text, err := a.generate(ctx, prompt(st))
	if err != nil {
		logger.Debug("motivation request failed, using static message", "error", err)
		return a.fallback.Message(ctx, st)
	}
	return Message{Text: text, Source: SourceAnthropic}, nil
}

func (a *Anthropic) generate(ctx context.Context, p string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 100,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

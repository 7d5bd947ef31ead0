package chat

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

type Variant string

const (
	Sent     Variant = "sent"
	Received Variant = "received"
)

type RenderedMessage struct {
	Text    string  `json:"text"`
	UserID  string  `json:"userId"`
	Image   string  `json:"image"`
	Variant Variant `json:"variant"`
}

// Transcript is a fully resolved message list of one group
type Transcript struct {
	GroupID  string            `json:"group"`
	Messages []RenderedMessage `json:"messages"`
}

// ResolveTranscript resolves every distinct sender first and only then builds the output,
// one rendered message per input message in input order.
func ResolveTranscript(ctx context.Context, messages []Message, images *ImageResolver, selfID string) []RenderedMessage {
	senders := lo.Uniq(lo.Map(messages, func(m Message, _ int) string { return m.UserID }))
	images.ResolveAll(ctx, senders)

	return lo.Map(messages, func(m Message, _ int) RenderedMessage {
		variant := Received
		if m.UserID == selfID {
			variant = Sent
		}
		return RenderedMessage{
			Text:    m.Text,
			UserID:  m.UserID,
			Image:   images.Image(m.UserID),
			Variant: variant,
		}
	})
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

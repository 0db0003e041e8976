package notifier

import (
	"context"
	"strings"
)

// Sink delivers rendered messages to channels. This decouples the engine
// from the specific notification provider (e.g., Slack).
type Sink interface {
	// Deliver posts msg to channelID. A channel that does not resolve to a
	// live destination yields an error marked errs.ErrSinkUnavailable.
	Deliver(ctx context.Context, channelID string, msg Message) error
	// Ready is closed once the sink has confirmed it can deliver.
	Ready() <-chan struct{}
}

// Reporter sends errors to an operator out of band.
type Reporter interface {
	Report(ctx context.Context, err error)
}

// Message is a provider-neutral rendered notification.
type Message struct {
	Title  string
	Text   string
	Fields []Field
	Footer string
}

// Field is a labelled value shown alongside the message text.
type Field struct {
	Name  string
	Value string
}

// PlainText flattens the message, for logs and text-only destinations.
func (m Message) PlainText() string {
	var b strings.Builder
	for _, line := range []string{m.Title, m.Text} {
		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	for _, f := range m.Fields {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	if m.Footer != "" {
		b.WriteString(m.Footer)
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

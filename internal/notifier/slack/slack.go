package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

var (
	_ notifier.Sink     = (*Notifier)(nil)
	_ notifier.Reporter = (*Notifier)(nil)
)

// Slack error codes meaning the channel will not accept messages.
var deadChannelErrors = map[string]bool{
	"channel_not_found":   true,
	"not_in_channel":      true,
	"is_archived":         true,
	"channel_is_archived": true,
	"restricted_action":   true,
}

// Notifier delivers messages to Slack channels.
type Notifier struct {
	api               slackClient
	operatorChannelID string
	metrics           metrics.Metrics
	dryRun            bool

	ready     chan struct{}
	readyOnce sync.Once
	retry     time.Duration
}

// NewNotifier creates a new Notifier. Errors passed to Report are posted to
// operatorChannelID; an empty id only logs them.
func NewNotifier(token, operatorChannelID string, metrics metrics.Metrics, dryRun bool) *Notifier {
	return NewNotifierWithAPI(slack.New(token), operatorChannelID, metrics, dryRun)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, operatorChannelID string, metrics metrics.Metrics, dryRun bool) *Notifier {
	return &Notifier{
		api:               api,
		operatorChannelID: operatorChannelID,
		metrics:           metrics,
		dryRun:            dryRun,
		ready:             make(chan struct{}),
		retry:             5 * time.Second,
	}
}

// Ready is closed once WaitReady has confirmed the bot token works.
func (s *Notifier) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady calls auth.test until it succeeds or ctx is done, then releases
// Ready. In dry-run mode the sink is ready at once.
func (s *Notifier) WaitReady(ctx context.Context) error {
	if s.dryRun {
		s.markReady()
		return nil
	}
	for {
		resp, err := s.api.AuthTestContext(ctx)
		if err == nil {
			log.Info("Slack connection verified", "team", resp.Team, "user", resp.User)
			s.markReady()
			return nil
		}
		log.Warn("Slack not ready yet, retrying", "error", err, "retry", s.retry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry):
		}
	}
}

func (s *Notifier) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Deliver posts msg to channelID. Every failure is marked
// errs.ErrSinkUnavailable so the caller can skip the channel.
func (s *Notifier) Deliver(ctx context.Context, channelID string, msg notifier.Message) error {
	_, _, err := s.sendMessage(ctx, channelID, msg)
	return err
}

// Report posts err to the operator channel.
func (s *Notifier) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	log.Error("Reporting error to operator", "error", err, "kind", errs.KindOf(err))
	if s.operatorChannelID == "" {
		return
	}
	msg := notifier.Message{
		Title:  "rankwatch error",
		Text:   fmt.Sprintf("%v", err),
		Footer: "kind: " + errs.KindOf(err),
	}
	if _, _, sendErr := s.sendMessage(ctx, s.operatorChannelID, msg); sendErr != nil {
		log.Error("Failed to report error to operator channel", "error", sendErr)
	}
}

func (s *Notifier) sendMessage(ctx context.Context, channelID string, msg notifier.Message) (string, string, error) {
	message := FormatMessage(msg)
	if s.dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", channelID, "message", string(jsonMsg))
		return channelID, "dry-run-ts", nil
	}

	respChannel, timestamp, err := s.api.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionText(msg.PlainText(), false),
	)
	if err != nil {
		s.metrics.IncNotifFailed()
		var slackErr slack.SlackErrorResponse
		if errors.As(err, &slackErr) && deadChannelErrors[slackErr.Err] {
			log.Warn("Slack channel does not accept messages", "channel", channelID, "reason", slackErr.Err)
		} else {
			log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		}
		return "", "", errs.Wrapf(err, errs.ErrSinkUnavailable, "post to channel %s", channelID)
	}

	s.metrics.IncNotifSent()
	log.Info("Successfully sent Slack message", "channel", respChannel, "timestamp", timestamp)
	return respChannel, timestamp, nil
}

// FormatMessage renders msg as Block Kit: a header, the text with its
// fields, and the footer as context.
func FormatMessage(msg notifier.Message) slack.Message {
	blocks := make([]slack.Block, 0, 3)

	if msg.Title != "" {
		blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", msg.Title, true, false)))
	}

	var fields []*slack.TextBlockObject
	for _, f := range msg.Fields {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*\n%s", f.Name, f.Value), false, false))
	}
	if msg.Text != "" || len(fields) > 0 {
		var text *slack.TextBlockObject
		if msg.Text != "" {
			text = slack.NewTextBlockObject("mrkdwn", msg.Text, false, false)
		}
		blocks = append(blocks, slack.NewSectionBlock(text, fields, nil))
	}

	if msg.Footer != "" {
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", msg.Footer, true, false)))
	}
	return slack.NewBlockMessage(blocks...)
}

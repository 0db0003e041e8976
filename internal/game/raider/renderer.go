package raider

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

var _ game.Renderer = (*Renderer)(nil)

var leaderFlavor = []string{
	"%s needs to go outside",
	"%s should probably touch grass",
	"%s might need to take a break",
	"%s hasn't showered in days",
	"%s is losing their grip",
	"%s definitely isn't short",
	"Somebody should check on %s",
	"I can smell %s from here",
}

func NewRenderer() *Renderer {
	return &Renderer{Pick: rand.IntN, Now: time.Now}
}

func (r *Renderer) RenderChange(old, fresh schema.Values, sub tracker.SubscriberChannel) notifier.Message {
	before, after := old.Float("rating"), fresh.Float("rating")
	name := old.Text("name")

	var text []string
	if sub.OwnerTag != nil {
		text = append(text, fmt.Sprintf("Tracked for <@%s>", *sub.OwnerTag))
	}
	if run := fresh.Text("recent_run"); run != "" {
		text = append(text, run)
	}

	return notifier.Message{
		Title: fmt.Sprintf("%s reached mythic+ rating %.1f", name, after),
		Text:  strings.Join(text, "\n"),
		Fields: []notifier.Field{
			{Name: "Previous", Value: fmt.Sprintf("%.1f", before)},
			{Name: "Current", Value: fmt.Sprintf("%.1f", after)},
			{Name: "Gain", Value: fmt.Sprintf("%+.1f", after-before)},
		},
		Footer: character(fresh),
	}
}

func (r *Renderer) RenderSnapshot(values schema.Values) notifier.Message {
	msg := notifier.Message{
		Title: fmt.Sprintf("%s has mythic+ rating %.1f", values.Text("name"), values.Float("rating")),
		Text:  values.Text("recent_run"),
		Footer: fmt.Sprintf("%s-%s · %s", strings.ToUpper(values.Text("region")), values.Text("realm"),
			r.Now().UTC().Format("2006-01-02 15:04 MST")),
	}
	if c := values.Text("class"); c != "" {
		msg.Fields = append(msg.Fields, notifier.Field{Name: "Class", Value: c})
	}
	if s := values.Text("spec"); s != "" {
		msg.Fields = append(msg.Fields, notifier.Field{Name: "Spec", Value: s})
	}
	return msg
}

// RenderLeaderboard lists players in the order given.
func (r *Renderer) RenderLeaderboard(players []tracker.SubscribedPlayer) notifier.Message {
	msg := notifier.Message{Title: "Mythic+ Leaderboard"}
	if len(players) == 0 {
		msg.Text = "It's a little bit empty in here..."
		return msg
	}

	lines := make([]string, len(players))
	for i, sp := range players {
		line := fmt.Sprintf("%d. %s, %.1f", i+1, sp.Player.Values.Text("name"), sp.Player.Values.Float("rating"))
		if sp.OwnerTag != nil {
			line += fmt.Sprintf(" (<@%s>)", *sp.OwnerTag)
		}
		lines[i] = line
	}
	msg.Text = strings.Join(lines, "\n")
	msg.Footer = fmt.Sprintf(leaderFlavor[r.Pick(len(leaderFlavor))], players[0].Player.Values.Text("name"))
	return msg
}

func character(v schema.Values) string {
	return strings.TrimSpace(v.Text("spec") + " " + v.Text("class"))
}

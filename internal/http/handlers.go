package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/rankwatch/internal/commands"
	slacknotifier "github.com/mauv0809/rankwatch/internal/notifier/slack"
	"github.com/slack-go/slack"
)

const maxCommandBytes = 64 << 10

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// RefreshHandler runs one refresh sweep and reports its counts. The sweep
// finishes even if the caller hangs up.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Manual refresh requested")
		res, err := s.Jobs.RefreshOnce(context.WithoutCancel(r.Context()))
		if err != nil {
			log.Error("Manual refresh failed", "error", err)
			http.Error(w, "Refresh failed", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, res)
	}
}

func (s *Server) CleanupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Manual cleanup requested")
		n, err := s.Jobs.CleanupOnce(context.WithoutCancel(r.Context()))
		if err != nil {
			log.Error("Manual cleanup failed", "error", err)
			http.Error(w, "Cleanup failed", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, map[string]int64{"deleted": n})
	}
}

// StatsHandler serves the lifetime counters kept in the database.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.Counters.GetAll()
		if err != nil {
			log.Error("Failed to read counters", "error", err)
			http.Error(w, "Failed to read counters", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, counts)
	}
}

// SlackCommandHandler answers the slash command. The request signature is
// checked against the signing secret unless none is configured.
func (s *Server) SlackCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxCommandBytes)

		var verifier *slack.SecretsVerifier
		if secret := s.Cfg.Slack.SigningSecret; secret != "" {
			sv, err := slack.NewSecretsVerifier(r.Header, secret)
			if err != nil {
				log.Warn("Rejected slash command without valid signature headers", "error", err)
				http.Error(w, "Invalid request signature", http.StatusUnauthorized)
				return
			}
			verifier = &sv
			r.Body = io.NopCloser(io.TeeReader(r.Body, verifier))
		} else {
			log.Warn("No signing secret configured, accepting unsigned slash command")
		}

		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			log.Error("Failed to parse slash command", "error", err)
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		if verifier != nil {
			if err := verifier.Ensure(); err != nil {
				log.Warn("Rejected slash command with bad signature", "team", cmd.TeamID, "error", err)
				http.Error(w, "Invalid request signature", http.StatusUnauthorized)
				return
			}
		}

		log.Info("Received slash command", "team", cmd.TeamID, "channel", cmd.ChannelID, "user", cmd.UserID, "text", cmd.Text)
		reply := s.Commands.Handle(r.Context(), commands.Request{
			GroupID:   cmd.TeamID,
			ChannelID: cmd.ChannelID,
			UserID:    cmd.UserID,
			Text:      cmd.Text,
		})
		respondWithSlackMsg(w, slackReply(reply))
	}
}

func slackReply(reply commands.Reply) slack.Message {
	msg := slacknotifier.FormatMessage(reply.Message)
	msg.Text = reply.PlainText()
	msg.ResponseType = slack.ResponseTypeInChannel
	if reply.Ephemeral {
		msg.ResponseType = slack.ResponseTypeEphemeral
	}
	return msg
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	respondWithJSON(w, msg)
}

func respondWithJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response to JSON", "error", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/schema"
	"gopkg.in/yaml.v3"
)

// seedFile is the import format:
//
//	groups:
//	  - id: T024BE7LD
//	    channel: C0123ABCD
//	    players:
//	      - kind: raider
//	        key: {region: eu, realm: draenor, name: thrall}
//	        owner: U012AB3CD
type seedFile struct {
	Groups []seedGroup `yaml:"groups" validate:"dive"`
}

type seedGroup struct {
	ID      string       `yaml:"id" validate:"required"`
	Channel string       `yaml:"channel" validate:"required"`
	Players []seedPlayer `yaml:"players" validate:"dive"`
}

type seedPlayer struct {
	Kind  string         `yaml:"kind" validate:"required"`
	Key   map[string]any `yaml:"key" validate:"required,min=1"`
	Owner string         `yaml:"owner"`
}

type seedResult struct {
	Subscribed int
	Existing   int
	Failed     int
}

func loadSeedFile(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeedFile(data)
}

func parseSeedFile(data []byte) (seedFile, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return seedFile{}, fmt.Errorf("invalid seed file: %w", err)
	}
	return file, nil
}

// seed subscribes every listed player. A player that fails is logged and
// counted; the rest are still imported.
func seed(ctx context.Context, registry *game.Registry, svc *commands.Service, file seedFile) seedResult {
	var res seedResult
	for _, g := range file.Groups {
		for _, p := range g.Players {
			logger := log.With("group", g.ID, "kind", p.Kind, "key", p.Key)
			k, ok := registry.Get(p.Kind)
			if !ok {
				logger.Error("Unknown player kind")
				res.Failed++
				continue
			}
			var owner *string
			if p.Owner != "" {
				owner = &p.Owner
			}

			_, created, err := svc.Watch(ctx, k, g.ID, g.Channel, schema.Values(p.Key), owner)
			if err != nil {
				logger.Error("Failed to import subscription", "error", err)
				res.Failed++
				continue
			}
			if created {
				res.Subscribed++
			} else {
				res.Existing++
			}
		}
	}
	return res
}

package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName   string      `env:"DB_NAME" envDefault:"rankwatch.db" validate:"required"`
	Port     string      `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel string      `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Slack    SlackConfig `envPrefix:"SLACK_"`
	Turso    TursoConfig `envPrefix:"TURSO_"`
	// ProjectID enables publishing player-changed events when set.
	ProjectID string `env:"GCP_PROJECT"`
	Schedule  Schedule
	Raider    RaiderConfig `envPrefix:"RAIDER_"`
}

type SlackConfig struct {
	Token             string `env:"BOT_TOKEN" validate:"required_unless=DryRun true"`
	SigningSecret     string `env:"SIGNING_SECRET" validate:"required_unless=DryRun true"`
	OperatorChannelID string `env:"OPERATOR_CHANNEL_ID"`
	DryRun            bool   `env:"DRY_RUN"`
}

type TursoConfig struct {
	PrimaryURL string `env:"PRIMARY_URL" validate:"omitempty,url"`
	AuthToken  string `env:"AUTH_TOKEN" validate:"required_with=PrimaryURL"`
}

type Schedule struct {
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m" validate:"gt=0"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h" validate:"gt=0"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	// CommandTimeout bounds the fetch behind a slash command; Slack drops
	// replies that take longer than 3s.
	CommandTimeout time.Duration `env:"COMMAND_FETCH_TIMEOUT" envDefault:"2500ms" validate:"gt=0,lt=3s"`
}

type RaiderConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://raider.io" validate:"url"`
}

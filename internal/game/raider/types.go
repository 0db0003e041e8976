package raider

import (
	"net/http"
	"time"

	"github.com/mauv0809/rankwatch/internal/schema"
)

// Kind is the raider.io mythic+ player kind.
var Kind = schema.MustNew("raider",
	schema.Field{Name: "region", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "realm", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "name", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "rating", Type: schema.Real, Tracked: true},
	schema.Field{Name: "class", Type: schema.Text},
	schema.Field{Name: "spec", Type: schema.Text},
	schema.Field{Name: "recent_run", Type: schema.Text},
)

const DefaultBaseURL = "https://raider.io"

// Client fetches character profiles from the raider.io API.
type Client struct {
	httpClient *http.Client
	BaseURL    string
}

// Renderer formats raider messages. Pick chooses a leaderboard footer; it
// defaults to a random choice.
type Renderer struct {
	Pick func(n int) int
	Now  func() time.Time
}

// profileResponse is the part of /api/v1/characters/profile we use.
type profileResponse struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	Realm          string `json:"realm"`
	Class          string `json:"class"`
	ActiveSpecName string `json:"active_spec_name"`
	BestRuns       []run  `json:"mythic_plus_best_runs"`
	AlternateRuns  []run  `json:"mythic_plus_alternate_runs"`
	RecentRuns     []run  `json:"mythic_plus_recent_runs"`
}

type run struct {
	Dungeon     string  `json:"dungeon"`
	MythicLevel int     `json:"mythic_level"`
	ClearTimeMS int64   `json:"clear_time_ms"`
	Score       float64 `json:"score"`
	Affixes     []affix `json:"affixes"`
}

type affix struct {
	Name string `json:"name"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

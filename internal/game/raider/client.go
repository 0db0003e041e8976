package raider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/schema"
)

var _ game.Source = (*Client)(nil)

// NewClient creates a raider.io client. An empty baseURL uses raider.io.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Game bundles the raider kind with its client and renderer.
func Game(baseURL string) game.Game {
	return game.Game{
		Descriptor: Kind,
		Source:     NewClient(baseURL),
		Renderer:   NewRenderer(),
	}
}

// Fetch retrieves a character and computes its mythic+ rating.
func (c *Client) Fetch(ctx context.Context, key schema.Values) (schema.Values, error) {
	region, realm, name := key.Text("region"), key.Text("realm"), key.Text("name")
	if region == "" || realm == "" || name == "" {
		return nil, errs.Newf(errs.ErrUserInput, "region, realm and name are required")
	}

	q := url.Values{}
	q.Set("region", region)
	q.Set("realm", realm)
	q.Set("name", name)
	q.Set("fields", "mythic_plus_best_runs:all,mythic_plus_alternate_runs:all,mythic_plus_recent_runs")
	endpoint := c.BaseURL + "/api/v1/characters/profile?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "rankwatch/1.0")

	log.Debug("Requesting character from raider.io", "region", region, "realm", realm, "name", name)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, errs.ErrTransientSource, "raider.io request for %s-%s", name, realm)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, errs.ErrTransientSource, "read raider.io response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		// raider.io answers 400 for characters it cannot find.
		var apiErr errorResponse
		_ = sonic.Unmarshal(body, &apiErr)
		return nil, errs.Newf(errs.ErrNotFound, "raider.io could not find %s on %s-%s: %s", name, region, realm, apiErr.Message)
	default:
		log.Warn("Received non-OK HTTP status from raider.io", "status", resp.StatusCode, "body", string(body))
		return nil, errs.Newf(errs.ErrTransientSource, "received %d from raider.io", resp.StatusCode)
	}

	var profile profileResponse
	if err := sonic.Unmarshal(body, &profile); err != nil {
		return nil, errs.Wrapf(err, errs.ErrTransientSource, "decode raider.io profile")
	}
	return profile.values(region), nil
}

func (p profileResponse) values(requestedRegion string) schema.Values {
	region := p.Region
	if region == "" {
		region = requestedRegion
	}
	return schema.Values{
		"region":     strings.ToLower(region),
		"realm":      p.Realm,
		"name":       p.Name,
		"rating":     p.rating(),
		"class":      p.Class,
		"spec":       p.ActiveSpecName,
		"recent_run": p.describeRecentRun(),
	}
}

// rating weights best runs by 1.5 and alternate runs by 0.5.
func (p profileResponse) rating() float64 {
	var score float64
	for _, r := range p.BestRuns {
		score += 1.5 * r.Score
	}
	for _, r := range p.AlternateRuns {
		score += 0.5 * r.Score
	}
	return score
}

func (p profileResponse) describeRecentRun() string {
	if len(p.RecentRuns) == 0 {
		return ""
	}
	r := p.RecentRuns[0]
	names := make([]string, len(r.Affixes))
	for i, a := range r.Affixes {
		names[i] = a.Name
	}
	return fmt.Sprintf("Their most recent run was %s +%d in %s with affixes %s.",
		r.Dungeon, r.MythicLevel, formatClearTime(r.ClearTimeMS), strings.Join(names, ", "))
}

// formatClearTime renders milliseconds as MM:SS, or HH:MM:SS past an hour.
func formatClearTime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

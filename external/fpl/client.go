package fpl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/fplhq/minileague/internal/platform/cache"
	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/platform/resilience"
	"github.com/fplhq/minileague/internal/usecase"
)

const (
	defaultBaseURL      = "https://fantasy.premierleague.com/api"
	bootstrapCacheKey   = "fpl:bootstrap-static"
	defaultBootstrapTTL = 5 * time.Minute
	maxResponseBytes    = 12 << 20
)

var errFPLTransient = crerr.New("fpl transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	BootstrapTTL   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the upstream fantasy API. Transient failures come back as
// zero values with a nil error; unknown leagues/entries surface as
// usecase.ErrNotFound.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.Group[string, []byte]
	bootstrap      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	bootstrapTTL := cfg.BootstrapTTL
	if bootstrapTTL <= 0 {
		bootstrapTTL = defaultBootstrapTTL
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
		bootstrap:      cache.NewStore(bootstrapTTL),
	}
}

func (c *Client) LeagueStandings(ctx context.Context, leagueID int64) (*usecase.LeagueStandings, error) {
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be positive", usecase.ErrInvalidInput)
	}

	var decoded standingsEnvelope
	ok, err := c.getJSON(ctx, fmt.Sprintf("/leagues-classic/%d/standings/", leagueID), &decoded)
	if err != nil {
		return nil, fmt.Errorf("fetch standings league=%d: %w", leagueID, err)
	}
	if !ok {
		return nil, nil
	}

	out := &usecase.LeagueStandings{
		LeagueID:   leagueID,
		LeagueName: strings.TrimSpace(decoded.League.Name),
		Entries:    make([]usecase.StandingEntry, 0, len(decoded.Standings.Results)),
	}
	for _, row := range decoded.Standings.Results {
		out.Entries = append(out.Entries, usecase.StandingEntry{
			EntryID:    row.Entry,
			PlayerName: strings.TrimSpace(row.PlayerName),
			TeamName:   strings.TrimSpace(row.EntryName),
			Rank:       row.Rank,
			LastRank:   row.LastRank,
			Total:      row.Total,
			EventTotal: row.EventTotal,
		})
	}

	return out, nil
}

func (c *Client) Bootstrap(ctx context.Context) (*usecase.Bootstrap, error) {
	value, err := c.bootstrap.GetOrLoad(ctx, bootstrapCacheKey, func(ctx context.Context) (any, error) {
		var decoded bootstrapEnvelope
		ok, fetchErr := c.getJSON(ctx, "/bootstrap-static/", &decoded)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if !ok {
			return nil, fmt.Errorf("%w: bootstrap unavailable", errFPLTransient)
		}

		out := &usecase.Bootstrap{
			Players:   make(map[int64]usecase.PlayerMeta, len(decoded.Elements)),
			Gameweeks: make([]usecase.GameweekMeta, 0, len(decoded.Events)),
		}
		for _, element := range decoded.Elements {
			out.Players[element.ID] = usecase.PlayerMeta{
				ID:      element.ID,
				WebName: strings.TrimSpace(element.WebName),
			}
		}
		for _, event := range decoded.Events {
			out.Gameweeks = append(out.Gameweeks, usecase.GameweekMeta{
				ID:          event.ID,
				IsCurrent:   event.IsCurrent,
				Finished:    event.Finished,
				DataChecked: event.DataChecked,
			})
		}
		return out, nil
	})
	if err != nil {
		if stderrors.Is(err, errFPLTransient) {
			return nil, nil
		}
		return nil, err
	}

	out, ok := value.(*usecase.Bootstrap)
	if !ok {
		return nil, fmt.Errorf("unexpected bootstrap cache payload type %T", value)
	}
	return out, nil
}

func (c *Client) EntryEvent(ctx context.Context, entryID int64, gameweek int) (*usecase.EntryEvent, error) {
	if entryID <= 0 || gameweek <= 0 {
		return nil, fmt.Errorf("%w: entry id and gameweek must be positive", usecase.ErrInvalidInput)
	}

	var decoded picksEnvelope
	ok, err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", entryID, gameweek), &decoded)
	if err != nil {
		return nil, fmt.Errorf("fetch picks entry=%d gw=%d: %w", entryID, gameweek, err)
	}
	if !ok {
		return nil, nil
	}

	out := &usecase.EntryEvent{
		Points:         decoded.EntryHistory.Points,
		TotalPoints:    decoded.EntryHistory.TotalPoints,
		ActiveChip:     strings.TrimSpace(decoded.ActiveChip),
		TransfersCount: decoded.EntryHistory.EventTransfers,
		TransfersCost:  decoded.EntryHistory.EventTransfersCost,
		PointsOnBench:  decoded.EntryHistory.PointsOnBench,
		Picks:          make([]usecase.PickSlot, 0, len(decoded.Picks)),
	}
	for _, pick := range decoded.Picks {
		out.Picks = append(out.Picks, usecase.PickSlot{
			PlayerID:   pick.Element,
			Position:   pick.Position,
			Multiplier: pick.Multiplier,
			IsCaptain:  pick.IsCaptain,
		})
	}

	return out, nil
}

func (c *Client) LivePoints(ctx context.Context, gameweek int) (map[int64]int, error) {
	if gameweek <= 0 {
		return nil, fmt.Errorf("%w: gameweek must be positive", usecase.ErrInvalidInput)
	}

	var decoded liveEnvelope
	ok, err := c.getJSON(ctx, fmt.Sprintf("/event/%d/live/", gameweek), &decoded)
	if err != nil {
		return nil, fmt.Errorf("fetch live points gw=%d: %w", gameweek, err)
	}
	if !ok {
		return nil, nil
	}

	out := make(map[int64]int, len(decoded.Elements))
	for _, element := range decoded.Elements {
		out[element.ID] = element.Stats.TotalPoints
	}

	return out, nil
}

func (c *Client) EntryTransfers(ctx context.Context, entryID int64) ([]usecase.TransferRecord, error) {
	if entryID <= 0 {
		return nil, fmt.Errorf("%w: entry id must be positive", usecase.ErrInvalidInput)
	}

	var decoded []transferRow
	ok, err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/transfers/", entryID), &decoded)
	if err != nil {
		return nil, fmt.Errorf("fetch transfers entry=%d: %w", entryID, err)
	}
	if !ok {
		return nil, nil
	}

	out := make([]usecase.TransferRecord, 0, len(decoded))
	for _, row := range decoded {
		out = append(out, usecase.TransferRecord{
			PlayerIn:  row.ElementIn,
			PlayerOut: row.ElementOut,
			Gameweek:  row.Event,
			Time:      row.Time,
		})
	}

	return out, nil
}

func (c *Client) EntryChips(ctx context.Context, entryID int64) ([]usecase.ChipRecord, error) {
	if entryID <= 0 {
		return nil, fmt.Errorf("%w: entry id must be positive", usecase.ErrInvalidInput)
	}

	var decoded historyEnvelope
	ok, err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/history/", entryID), &decoded)
	if err != nil {
		return nil, fmt.Errorf("fetch history entry=%d: %w", entryID, err)
	}
	if !ok {
		return nil, nil
	}

	out := make([]usecase.ChipRecord, 0, len(decoded.Chips))
	for _, chip := range decoded.Chips {
		out = append(out, usecase.ChipRecord{
			Name:     strings.TrimSpace(chip.Name),
			Gameweek: chip.Event,
		})
	}

	return out, nil
}

// getJSON fetches and decodes one upstream path. It returns ok=false with a
// nil error for transient failures so callers serve degraded data; permanent
// upstream rejections (404) come back as usecase.ErrNotFound.
func (c *Client) getJSON(ctx context.Context, path string, target any) (bool, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "state", c.breaker.State())
			return false, nil
		}
	}

	fullURL := c.baseURL + path
	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		body, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errFPLTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return body, reqErr
	})
	if err != nil {
		if stderrors.Is(err, errFPLTransient) {
			return false, nil
		}
		return false, err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		c.logger.WarnContext(ctx, "fpl payload decode failed", "path", path, "error", err)
		return false, nil
	}

	return true, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "minileague/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errFPLTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errFPLTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: upstream returned 404 for %s", usecase.ErrNotFound, fullURL)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: upstream status=%d", errFPLTransient, resp.StatusCode)
			default:
				// Unexpected 4xx: not retryable, but still served as
				// no-data so a single bad entry cannot fail a whole view.
				return nil, fmt.Errorf("%w: upstream status=%d", errFPLTransient, resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", errFPLTransient, ctx.Err())
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: upstream request failed", errFPLTransient)
	}
	c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package apify implements the scraping provider against the Apify REST API.
// One actor run backs one scan run; the task handle is the actor run ID.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// DefaultBaseURL is the production Apify API endpoint.
const DefaultBaseURL = "https://api.apify.com/v2"

const defaultTimeout = 2 * time.Minute

// ErrMissingToken is returned by New when no API token is configured.
var ErrMissingToken = errors.New("apify: api token not set")

// Config holds client settings. ActorIDs maps each platform to the actor
// that scrapes it.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
	ActorIDs map[scan.Platform]string
}

// Client talks to the Apify actor-run API. It satisfies scan.Provider.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// StartTask launches the platform's actor and returns the actor run ID.
func (c *Client) StartTask(ctx context.Context, platform scan.Platform, params scan.TaskParams) (string, error) {
	actorID, ok := c.cfg.ActorIDs[platform]
	if !ok || actorID == "" {
		return "", fmt.Errorf("no actor configured for platform %s", platform)
	}

	body, err := json.Marshal(buildActorInput(platform, params))
	if err != nil {
		return "", fmt.Errorf("encode actor input: %w", err)
	}

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.cfg.BaseURL, actorID, c.cfg.APIToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start actor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("start actor: status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode actor run: %w", err)
	}
	if result.Data.ID == "" {
		return "", errors.New("actor run response had no id")
	}

	c.logger.Debug("actor run started",
		zap.String("platform", string(platform)),
		zap.String("actor_id", actorID),
		zap.String("run_id", result.Data.ID),
	)
	return result.Data.ID, nil
}

// TaskStatus reports the state of an actor run.
func (c *Client) TaskStatus(ctx context.Context, handle string) (scan.TaskState, error) {
	run, err := c.getActorRun(ctx, handle)
	if err != nil {
		return "", err
	}
	return mapRunStatus(run.Status), nil
}

// TaskResults downloads the actor run's default dataset as individual items.
func (c *Client) TaskResults(ctx context.Context, handle string) ([]scan.RawItem, error) {
	run, err := c.getActorRun(ctx, handle)
	if err != nil {
		return nil, err
	}
	if run.DefaultDatasetID == "" {
		return nil, fmt.Errorf("actor run %s has no dataset", handle)
	}

	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.cfg.BaseURL, run.DefaultDatasetID, c.cfg.APIToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
	}

	var items []scan.RawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// FetchResource downloads an auxiliary resource a result item points at,
// such as a subtitle file.
func (c *Client) FetchResource(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch resource: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type actorRun struct {
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

func (c *Client) getActorRun(ctx context.Context, handle string) (actorRun, error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.cfg.BaseURL, handle, c.cfg.APIToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return actorRun{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return actorRun{}, fmt.Errorf("get actor run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return actorRun{}, fmt.Errorf("get actor run: status %d", resp.StatusCode)
	}

	var result struct {
		Data actorRun `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return actorRun{}, fmt.Errorf("decode actor run: %w", err)
	}
	return result.Data, nil
}

// buildActorInput shapes the actor input per platform. Each scraper actor
// takes the channel URL and result limit under different key names.
func buildActorInput(platform scan.Platform, params scan.TaskParams) map[string]any {
	switch platform {
	case scan.PlatformYouTube:
		return map[string]any{
			"startUrls":  []map[string]string{{"url": params.ChannelURL}},
			"maxResults": params.MaxResults,
		}
	case scan.PlatformTikTok:
		return map[string]any{
			"profiles":       []string{params.ChannelURL},
			"resultsPerPage": params.MaxResults,
		}
	case scan.PlatformInstagram:
		return map[string]any{
			"directUrls":   []string{params.ChannelURL},
			"resultsLimit": params.MaxResults,
		}
	default:
		return map[string]any{"url": params.ChannelURL}
	}
}

// mapRunStatus folds Apify run statuses into task states. Anything not yet
// terminal counts as pending.
func mapRunStatus(status string) scan.TaskState {
	switch status {
	case "SUCCEEDED":
		return scan.TaskStateSucceeded
	case "FAILED":
		return scan.TaskStateFailed
	case "TIMED-OUT", "TIMING-OUT":
		return scan.TaskStateTimedOut
	case "ABORTED", "ABORTING":
		return scan.TaskStateAborted
	default:
		return scan.TaskStatePending
	}
}

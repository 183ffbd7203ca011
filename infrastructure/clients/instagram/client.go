package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sns-crosspost/domain/model"
	"sns-crosspost/domain/repository"
	"sns-crosspost/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

const defaultBaseURL = "https://graph.instagram.com"

// Container processing status codes returned by the Graph API.
const (
	statusFinished = "FINISHED"
	statusError    = "ERROR"
)

// Client publishes via the Graph API container flow: create a media container
// referencing the image by public URL, poll until processing finishes, then
// publish the container. The poll loop runs at most pollAttempts times at
// pollInterval spacing; exhaustion is a normal failed outcome, not an error.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userID       string
	accessToken  string
	pollInterval time.Duration
	pollAttempts int
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithPolling overrides the poll cadence, used by tests and config.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollAttempts = attempts
	}
}

func NewClient(userID, accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		userID:       userID,
		accessToken:  accessToken,
		pollInterval: 3 * time.Second,
		pollAttempts: 10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Platform() model.Platform { return model.PlatformInstagram }

func (c *Client) Publish(ctx context.Context, req repository.PublishRequest) model.PublishOutcome {
	containerID, outcome := c.createContainer(ctx, req)
	if containerID == "" {
		return outcome
	}

	switch status, detail := c.awaitContainer(ctx, containerID); status {
	case statusFinished:
		// fall through to publish
	case statusError:
		return failed(fmt.Sprintf("Instagram media processing error: %s", detail))
	default:
		return failed("Instagram media processing timed out")
	}

	return c.publishContainer(ctx, containerID)
}

// createContainer issues the media create call. The image travels by URL, not
// raw bytes: the Graph API fetches it from req.PublicURL itself.
func (c *Client) createContainer(ctx context.Context, req repository.PublishRequest) (string, model.PublishOutcome) {
	form := url.Values{}
	form.Set("image_url", req.PublicURL)
	form.Set("caption", req.Caption)
	form.Set("access_token", c.accessToken)

	createURL := fmt.Sprintf("%s/%s/media", c.baseURL, c.userID)
	raw, status, err := c.postForm(ctx, createURL, form)
	if err != nil {
		return "", failed(fmt.Sprintf("container create request failed: %v", err))
	}

	var result struct {
		ID    string    `json:"id"`
		Error *apiError `json:"error"`
	}
	_ = json.Unmarshal(raw, &result)
	if status != http.StatusOK || result.Error != nil {
		return "", failed(fmt.Sprintf("Instagram API error: %s", result.Error.message()))
	}
	if result.ID == "" {
		return "", failed("Instagram API error: no container id in response")
	}
	return result.ID, model.PublishOutcome{}
}

// awaitContainer polls the container status until FINISHED, ERROR, or the
// attempt cap runs out. Returns the last observed status plus error detail.
func (c *Client) awaitContainer(ctx context.Context, containerID string) (string, string) {
	type statusQuery struct {
		Fields      string `url:"fields"`
		AccessToken string `url:"access_token"`
	}
	v, _ := query.Values(statusQuery{Fields: "status_code", AccessToken: c.accessToken})
	statusURL := fmt.Sprintf("%s/%s?%s", c.baseURL, containerID, v.Encode())

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err().Error()
		case <-timer.C:
		}

		raw, _, err := c.get(ctx, statusURL)
		if err != nil {
			logger.GetLogger().WithField("attempt", attempt).WithField("error", err).Warn("instagram status poll failed")
			timer.Reset(c.pollInterval)
			continue
		}
		var result struct {
			StatusCode string    `json:"status_code"`
			Error      *apiError `json:"error"`
		}
		_ = json.Unmarshal(raw, &result)
		switch strings.ToUpper(result.StatusCode) {
		case statusFinished:
			return statusFinished, ""
		case statusError:
			return statusError, result.Error.message()
		}
		// Still in progress; keep polling.
		timer.Reset(c.pollInterval)
	}
	return "", ""
}

func (c *Client) publishContainer(ctx context.Context, containerID string) model.PublishOutcome {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", c.accessToken)

	publishURL := fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.userID)
	raw, status, err := c.postForm(ctx, publishURL, form)
	if err != nil {
		return failed(fmt.Sprintf("publish request failed: %v", err))
	}

	var result struct {
		ID    string    `json:"id"`
		Error *apiError `json:"error"`
	}
	_ = json.Unmarshal(raw, &result)
	if status != http.StatusOK || result.Error != nil {
		return failed(fmt.Sprintf("Instagram publish error: %s", result.Error.message()))
	}
	return model.PublishOutcome{Success: true, PostID: result.ID}
}

func (c *Client) postForm(ctx context.Context, u string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return raw, resp.StatusCode, err
}

type apiError struct {
	Message string `json:"message"`
}

func (e *apiError) message() string {
	if e == nil || e.Message == "" {
		return "Unknown error"
	}
	return e.Message
}

func failed(msg string) model.PublishOutcome {
	return model.PublishOutcome{Success: false, ErrorMessage: msg}
}

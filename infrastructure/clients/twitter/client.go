package twitter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"sns-crosspost/domain/model"
	"sns-crosspost/domain/repository"
	"sns-crosspost/infrastructure/logger"
)

const (
	defaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	defaultTweetURL  = "https://api.twitter.com/2/tweets"
)

// Client posts an image tweet in two signed steps: upload the media payload,
// then create the tweet referencing the returned media id. Each step carries
// an independently signed Authorization header.
type Client struct {
	httpClient *http.Client
	signer     *Signer
	uploadURL  string
	tweetURL   string
}

type Option func(*Client)

// WithEndpoints overrides the media upload and tweet URLs, used by tests.
func WithEndpoints(uploadURL, tweetURL string) Option {
	return func(c *Client) {
		c.uploadURL = uploadURL
		c.tweetURL = tweetURL
	}
}

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func NewClient(signer *Signer, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		signer:     signer,
		uploadURL:  defaultUploadURL,
		tweetURL:   defaultTweetURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Platform() model.Platform { return model.PlatformTwitter }

func (c *Client) Publish(ctx context.Context, req repository.PublishRequest) model.PublishOutcome {
	mediaID, outcome := c.uploadMedia(ctx, req.FilePath)
	if mediaID == "" {
		return outcome
	}
	return c.createTweet(ctx, req.Caption, mediaID)
}

func (c *Client) uploadMedia(ctx context.Context, filePath string) (string, model.PublishOutcome) {
	imageData, err := os.ReadFile(filePath)
	if err != nil {
		return "", failed(fmt.Sprintf("reading image file: %v", err))
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(imageData))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", failed(fmt.Sprintf("building upload request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", c.signer.AuthorizationHeader(http.MethodPost, c.uploadURL))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", failed(fmt.Sprintf("media upload request failed: %v", err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", failed(fmt.Sprintf("Twitter media upload error: %s", errorMessage(raw, resp.StatusCode)))
	}

	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	_ = json.Unmarshal(raw, &result)
	if result.MediaIDString == "" {
		return "", failed("Twitter media upload error: no media id in response")
	}
	return result.MediaIDString, model.PublishOutcome{}
}

func (c *Client) createTweet(ctx context.Context, caption, mediaID string) model.PublishOutcome {
	payload, err := json.Marshal(map[string]any{
		"text": caption,
		"media": map[string]any{
			"media_ids": []string{mediaID},
		},
	})
	if err != nil {
		return failed(fmt.Sprintf("encoding tweet payload: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tweetURL, bytes.NewReader(payload))
	if err != nil {
		return failed(fmt.Sprintf("building tweet request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Fresh signature: nonce and timestamp must differ from the upload step.
	httpReq.Header.Set("Authorization", c.signer.AuthorizationHeader(http.MethodPost, c.tweetURL))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return failed(fmt.Sprintf("tweet request failed: %v", err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var result struct {
		Data *struct {
			ID string `json:"id"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusCreated || len(result.Errors) > 0 {
		msg := "Unknown error"
		switch {
		case len(result.Errors) > 0 && result.Errors[0].Message != "":
			msg = result.Errors[0].Message
		case result.Detail != "":
			msg = result.Detail
		}
		logger.GetLogger().WithField("status", resp.StatusCode).WithField("error", msg).Warn("twitter tweet create failed")
		return failed(fmt.Sprintf("Twitter post error: %s", msg))
	}
	if result.Data == nil || result.Data.ID == "" {
		return failed("Twitter post error: no tweet id in response")
	}
	return model.PublishOutcome{Success: true, PostID: result.Data.ID}
}

func errorMessage(raw []byte, status int) string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
		return parsed.Errors[0].Message
	}
	return fmt.Sprintf("HTTP %d", status)
}

func failed(msg string) model.PublishOutcome {
	return model.PublishOutcome{Success: false, ErrorMessage: msg}
}
